package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Desarso/advisorchat/models"
)

// Integration names a linked third-party account.
type Integration string

const (
	Gmail    Integration = "gmail"
	Hubspot  Integration = "hubspot"
	Calendar Integration = "calendar"
)

func (c *Client) IntegrationStatus(ctx context.Context, name Integration) (*models.IntegrationStatus, error) {
	var out models.IntegrationStatus
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/integrations/%s/status", name), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConnectIntegration starts linking an account. The returned status usually
// carries the OAuth URL to open.
func (c *Client) ConnectIntegration(ctx context.Context, name Integration) (*models.IntegrationStatus, error) {
	var out models.IntegrationStatus
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/integrations/%s/connect", name), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
