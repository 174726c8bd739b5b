package models

import "time"

// Role identifies who authored a transcript entry. It is fixed at creation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// Metadata is optional per-message detail supplied by the assistant.
type Metadata struct {
	ToolCalls      []ToolCall `json:"toolCalls,omitempty"`
	ActionRequired bool       `json:"actionRequired,omitempty"`
	Context        string     `json:"context,omitempty"`
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	if m.Metadata != nil {
		md := *m.Metadata
		if md.ToolCalls != nil {
			md.ToolCalls = append([]ToolCall(nil), md.ToolCalls...)
		}
		m.Metadata = &md
	}
	return m
}

// NewMetadata returns nil when there is nothing worth attaching.
func NewMetadata(toolCalls []ToolCall, actionRequired bool, context string) *Metadata {
	if len(toolCalls) == 0 && !actionRequired && context == "" {
		return nil
	}
	return &Metadata{ToolCalls: toolCalls, ActionRequired: actionRequired, Context: context}
}
