package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Desarso/advisorchat/models"
)

// ListClients returns the flattened CRM rows. The backend may return either
// flattened rows or raw HubSpot contacts; both are accepted.
func (c *Client) ListClients(ctx context.Context) ([]models.Client, error) {
	return c.clients(ctx, "/hubspot/contacts", nil)
}

// SearchClients runs a free-text CRM search.
func (c *Client) SearchClients(ctx context.Context, q string) ([]models.Client, error) {
	return c.clients(ctx, "/hubspot/contacts/search", url.Values{"q": {q}})
}

func (c *Client) clients(ctx context.Context, path string, query url.Values) ([]models.Client, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, query, nil, &raw); err != nil {
		return nil, err
	}
	rows, err := unwrapList[json.RawMessage](raw, "results")
	if err != nil {
		return nil, fmt.Errorf("failed to decode contacts: %w", err)
	}
	clients := make([]models.Client, 0, len(rows))
	for _, row := range rows {
		var probe struct {
			Properties *models.ContactProperties `json:"properties"`
		}
		if err := json.Unmarshal(row, &probe); err != nil {
			return nil, fmt.Errorf("failed to decode contact: %w", err)
		}
		if probe.Properties != nil {
			var contact models.HubSpotContact
			if err := json.Unmarshal(row, &contact); err != nil {
				return nil, fmt.Errorf("failed to decode contact: %w", err)
			}
			clients = append(clients, contact.ToClient())
			continue
		}
		var client models.Client
		if err := json.Unmarshal(row, &client); err != nil {
			return nil, fmt.Errorf("failed to decode client: %w", err)
		}
		clients = append(clients, client)
	}
	return clients, nil
}

func (c *Client) GetContact(ctx context.Context, id string) (*models.HubSpotContact, error) {
	var out models.HubSpotContact
	if err := c.do(ctx, http.MethodGet, "/hubspot/contacts/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateContact(ctx context.Context, in models.ContactInput) (*models.HubSpotContact, error) {
	var out models.HubSpotContact
	if err := c.do(ctx, http.MethodPost, "/hubspot/contacts", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateContact sends only the non-empty fields of in.
func (c *Client) UpdateContact(ctx context.Context, id string, in models.ContactInput) (*models.HubSpotContact, error) {
	var out models.HubSpotContact
	if err := c.do(ctx, http.MethodPut, "/hubspot/contacts/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteContact(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/hubspot/contacts/"+url.PathEscape(id), nil, nil, nil)
}
