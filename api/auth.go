package api

import (
	"context"
	"net/http"

	"github.com/Desarso/advisorchat/models"
)

// GoogleAuth exchanges an OAuth code for a session token and stores it.
func (c *Client) GoogleAuth(ctx context.Context, code string) (*models.AuthResult, error) {
	return c.exchange(ctx, "/api/auth/google", code)
}

// HubspotAuth exchanges a HubSpot OAuth code.
func (c *Client) HubspotAuth(ctx context.Context, code string) (*models.AuthResult, error) {
	return c.exchange(ctx, "/api/auth/hubspot", code)
}

func (c *Client) exchange(ctx context.Context, path, code string) (*models.AuthResult, error) {
	var out models.AuthResult
	if err := c.do(ctx, http.MethodPost, path, nil, map[string]string{"code": code}, &out); err != nil {
		return nil, err
	}
	if out.Token != "" {
		c.SetToken(out.Token)
	}
	return &out, nil
}

// AuthStatus returns the current user, or a nil User when the token is not accepted.
func (c *Client) AuthStatus(ctx context.Context) (*models.AuthStatus, error) {
	var out models.AuthStatus
	if err := c.do(ctx, http.MethodGet, "/api/auth/status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the session server side and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
	c.SetToken("")
	return err
}

// ReauthenticateGoogle clears stale Google credentials and returns the URL
// the user must visit to grant access again.
func (c *Client) ReauthenticateGoogle(ctx context.Context) (*models.ReauthResult, error) {
	var out models.ReauthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/google/reauthenticate", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
