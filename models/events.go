package models

import "encoding/json"

// ChatMessageEvent is the payload of a chat_message push.
type ChatMessageEvent struct {
	Role           Role       `json:"role"`
	Content        string     `json:"content"`
	Timestamp      Timestamp  `json:"timestamp"`
	ToolCalls      []ToolCall `json:"toolCalls,omitempty"`
	ActionRequired bool       `json:"actionRequired,omitempty"`
}

// OutgoingChatMessage is what the client pushes for live fan-out.
type OutgoingChatMessage struct {
	Content string `json:"content"`
}

// TaskUpdate is the payload of a task_update push.
type TaskUpdate struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Timestamp Timestamp       `json:"timestamp"`
}

// ProactiveUpdate is the payload of a proactive_update push: something the
// agent did on its own, e.g. in reaction to an incoming email.
type ProactiveUpdate struct {
	EventType      string          `json:"eventType"`
	EventData      json.RawMessage `json:"eventData,omitempty"`
	Response       string          `json:"response"`
	ActionRequired bool            `json:"actionRequired"`
	ToolCalls      []ToolCall      `json:"toolCalls,omitempty"`
	Timestamp      Timestamp       `json:"timestamp"`
}

// NotificationType is the severity of a toast.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// Normalize maps unknown severities to info.
func (t NotificationType) Normalize() NotificationType {
	switch t {
	case NotificationSuccess, NotificationError, NotificationWarning, NotificationInfo:
		return t
	}
	return NotificationInfo
}

// Notification is the payload of a notification push.
type Notification struct {
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Timestamp Timestamp        `json:"timestamp"`
}
