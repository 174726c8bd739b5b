package api

import (
	"context"
	"net/http"

	"github.com/Desarso/advisorchat/models"
)

func (c *Client) GetSettings(ctx context.Context) (models.Settings, error) {
	out := models.Settings{}
	if err := c.do(ctx, http.MethodGet, "/user/settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSettings replaces the settings document and returns what the server stored.
func (c *Client) UpdateSettings(ctx context.Context, settings models.Settings) (models.Settings, error) {
	out := models.Settings{}
	if err := c.do(ctx, http.MethodPut, "/user/settings", nil, settings, &out); err != nil {
		return nil, err
	}
	return out, nil
}
