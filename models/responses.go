package models

import (
	"encoding/json"
	"strings"
)

// ChatResponse is the body returned by POST /api/chat/message. Backends have
// shipped the reply under different keys over time.
type ChatResponse struct {
	Text           string     `json:"text,omitempty"`
	Message        string     `json:"message,omitempty"`
	Response       string     `json:"response,omitempty"`
	SessionID      string     `json:"sessionId,omitempty"`
	ToolCalls      []ToolCall `json:"toolCalls,omitempty"`
	ActionRequired bool       `json:"actionRequired,omitempty"`
	Context        string     `json:"context,omitempty"`
}

// NoResponsePlaceholder is shown when a successful reply carries no text.
const NoResponsePlaceholder = "No response received"

// ReplyText walks text, message, response in that order and returns the first
// non-blank one, or NoResponsePlaceholder.
func (r ChatResponse) ReplyText() string {
	for _, s := range []string{r.Text, r.Message, r.Response} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return NoResponsePlaceholder
}

// HistoryEntry is one element of GET /api/chat/history.
type HistoryEntry struct {
	ID             FlexibleID `json:"id,omitempty"`
	Role           Role       `json:"role"`
	Content        string     `json:"content"`
	Timestamp      Timestamp  `json:"timestamp"`
	ToolCalls      []ToolCall `json:"toolCalls,omitempty"`
	ActionRequired bool       `json:"actionRequired,omitempty"`
	Context        string     `json:"context,omitempty"`
	Metadata       *Metadata  `json:"metadata,omitempty"`
}

// Conversation summarises one chat session for listing.
type Conversation struct {
	SessionID    string    `json:"sessionId"`
	Title        string    `json:"title,omitempty"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    Timestamp `json:"createdAt"`
	UpdatedAt    Timestamp `json:"updatedAt"`
}

// FlexibleID accepts both string and numeric identifiers.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = FlexibleID(n.String())
		return nil
	}
	*id = ""
	return nil
}
