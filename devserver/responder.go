package devserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Desarso/advisorchat/models"
)

// Responder produces the assistant's reply to one user turn.
type Responder interface {
	Reply(ctx context.Context, userID, sessionID, message string) (*models.ChatResponse, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, userID, sessionID, message string) (*models.ChatResponse, error)

func (f ResponderFunc) Reply(ctx context.Context, userID, sessionID, message string) (*models.ChatResponse, error) {
	return f(ctx, userID, sessionID, message)
}

// EchoResponder repeats the message back. Messages mentioning a follow-up
// keyword come back with actionRequired set and a create_task tool call, so
// the task flow can be exercised without a model behind it.
type EchoResponder struct{}

var followUpKeywords = []string{"schedule", "remind", "follow up", "email"}

func (EchoResponder) Reply(_ context.Context, _, _, message string) (*models.ChatResponse, error) {
	resp := &models.ChatResponse{Text: "You said: " + message}
	lower := strings.ToLower(message)
	for _, kw := range followUpKeywords {
		if strings.Contains(lower, kw) {
			call, _ := json.Marshal(map[string]any{
				"name":      "create_task",
				"arguments": map[string]string{"type": strings.ReplaceAll(kw, " ", "_"), "title": message},
			})
			resp.ToolCalls = []models.ToolCall{models.ToolCall(call)}
			resp.ActionRequired = true
			resp.Context = kw
			break
		}
	}
	return resp, nil
}
