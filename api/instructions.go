package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Desarso/advisorchat/models"
)

func (c *Client) GetInstructions(ctx context.Context) ([]models.Instruction, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/instructions", nil, nil, &raw); err != nil {
		return nil, err
	}
	list, err := unwrapList[models.Instruction](raw, "instructions")
	if err != nil {
		return nil, fmt.Errorf("failed to decode instructions: %w", err)
	}
	return list, nil
}

func (c *Client) CreateInstruction(ctx context.Context, in models.InstructionInput) (*models.Instruction, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/instructions", nil, in, &raw); err != nil {
		return nil, err
	}
	return unwrapObject[models.Instruction](raw, "instruction")
}

func (c *Client) UpdateInstruction(ctx context.Context, id int64, in models.InstructionInput) (*models.Instruction, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/instructions/%d", id), nil, in, &raw); err != nil {
		return nil, err
	}
	return unwrapObject[models.Instruction](raw, "instruction")
}

func (c *Client) DeleteInstruction(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/instructions/%d", id), nil, nil, nil)
}

// ToggleInstruction flips IsActive server side.
func (c *Client) ToggleInstruction(ctx context.Context, id int64) (*models.Instruction, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/instructions/%d/toggle", id), nil, nil, &raw); err != nil {
		return nil, err
	}
	return unwrapObject[models.Instruction](raw, "instruction")
}
