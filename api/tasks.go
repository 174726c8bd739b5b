package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Desarso/advisorchat/models"
)

// GetTasks lists tasks, optionally filtered by status.
func (c *Client) GetTasks(ctx context.Context, status string) ([]models.Task, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/tasks", query, nil, &raw); err != nil {
		return nil, err
	}
	tasks, err := unwrapList[models.Task](raw, "tasks")
	if err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, in, &raw); err != nil {
		return nil, err
	}
	return unwrapObject[models.Task](raw, "task")
}

func (c *Client) UpdateTask(ctx context.Context, id int64, in models.TaskInput) (*models.Task, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tasks/%d", id), nil, in, &raw); err != nil {
		return nil, err
	}
	return unwrapObject[models.Task](raw, "task")
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/tasks/%d", id), nil, nil, nil)
}
