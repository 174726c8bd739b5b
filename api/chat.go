package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Desarso/advisorchat/models"
)

// SendMessage posts one user turn. sessionID may be empty for a new conversation.
func (c *Client) SendMessage(ctx context.Context, message, sessionID string) (*models.ChatResponse, error) {
	var out models.ChatResponse
	req := models.ChatRequest{Message: message, SessionID: sessionID}
	if err := c.do(ctx, http.MethodPost, "/api/chat/message", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetHistory returns the ordered transcript of a session. Both a bare array
// and {"messages": [...]} are accepted.
func (c *Client) GetHistory(ctx context.Context, sessionID string) ([]models.HistoryEntry, error) {
	query := url.Values{}
	if sessionID != "" {
		query.Set("sessionId", sessionID)
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/chat/history", query, nil, &raw); err != nil {
		return nil, err
	}
	entries, err := unwrapList[models.HistoryEntry](raw, "messages")
	if err != nil {
		return nil, fmt.Errorf("failed to decode chat history: %w", err)
	}
	return entries, nil
}

func (c *Client) GetConversations(ctx context.Context) ([]models.Conversation, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/chat/conversations", nil, nil, &raw); err != nil {
		return nil, err
	}
	convs, err := unwrapList[models.Conversation](raw, "conversations")
	if err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return convs, nil
}
