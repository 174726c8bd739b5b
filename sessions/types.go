package sessions

import (
	"context"

	"github.com/Desarso/advisorchat/events"
	"github.com/Desarso/advisorchat/models"
	"github.com/Desarso/advisorchat/realtime"
)

// API is the synchronous request path the session depends on.
// *api.Client satisfies it.
type API interface {
	SendMessage(ctx context.Context, message, sessionID string) (*models.ChatResponse, error)
	GetHistory(ctx context.Context, sessionID string) ([]models.HistoryEntry, error)
}

// Transport is the live push channel. *realtime.Manager satisfies it.
type Transport interface {
	Connect(token string)
	Disconnect()
	IsConnected() bool
	SendChatMessage(content string) error
	OnChatMessage(fn func(models.ChatMessageEvent)) *events.Subscription
	OnTaskUpdate(fn func(models.TaskUpdate)) *events.Subscription
	OnProactiveUpdate(fn func(models.ProactiveUpdate)) *events.Subscription
	OnNotification(fn func(models.Notification)) *events.Subscription
	OnConnectionChange(fn func(realtime.ConnectionStatus)) *events.Subscription
}

// Notifier receives toast-style side effects. Implementations must not block.
type Notifier interface {
	Notify(kind models.NotificationType, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(kind models.NotificationType, message string)

func (f NotifierFunc) Notify(kind models.NotificationType, message string) { f(kind, message) }

type nopNotifier struct{}

func (nopNotifier) Notify(models.NotificationType, string) {}

// State is a point-in-time view of a chat session.
type State struct {
	Messages []models.Message
	// SessionID is empty until the server issues one.
	SessionID string
	IsLoading bool
	// Error is the last failure description, empty when none.
	Error       string
	IsConnected bool
	// Version increases by one with every change.
	Version uint64
}

func (s State) clone() State {
	out := s
	out.Messages = make([]models.Message, len(s.Messages))
	for i, m := range s.Messages {
		out.Messages[i] = m.Clone()
	}
	return out
}

// User-visible texts produced by the session.
const (
	ActionRequiredNotice   = "Action required! Check the task management panel."
	ProactiveActionNotice  = "Proactive action taken! Check tasks for details."
	ProactiveMessagePrefix = "Proactive action: "
	ErrorContext           = "Error occurred"
	DefaultSendErrorText   = "Failed to send message"
	HistoryLoadErrorText   = "Failed to load chat history"
	taskUpdateNoticeFormat = "Task updated: %s - %s"
)
