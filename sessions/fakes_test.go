package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Desarso/advisorchat/events"
	"github.com/Desarso/advisorchat/models"
	"github.com/Desarso/advisorchat/realtime"
)

type sendCall struct {
	message   string
	sessionID string
}

// fakeAPI answers from scripted functions. When gate is non-nil every call
// waits for a value on it before answering.
type fakeAPI struct {
	mu        sync.Mutex
	sends     []sendCall
	histories []string

	called chan struct{}
	gate   chan struct{}

	send    func(message, sessionID string) (*models.ChatResponse, error)
	history func(sessionID string) ([]models.HistoryEntry, error)
}

func (f *fakeAPI) wait(ctx context.Context) {
	if f.called != nil {
		f.called <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
		}
	}
}

func (f *fakeAPI) SendMessage(ctx context.Context, message, sessionID string) (*models.ChatResponse, error) {
	f.mu.Lock()
	f.sends = append(f.sends, sendCall{message, sessionID})
	f.mu.Unlock()
	f.wait(ctx)
	if f.send == nil {
		return &models.ChatResponse{Text: "ok"}, nil
	}
	return f.send(message, sessionID)
}

func (f *fakeAPI) GetHistory(ctx context.Context, sessionID string) ([]models.HistoryEntry, error) {
	f.mu.Lock()
	f.histories = append(f.histories, sessionID)
	f.mu.Unlock()
	f.wait(ctx)
	return f.history(sessionID)
}

func (f *fakeAPI) Sends() []sendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendCall(nil), f.sends...)
}

// fakeTransport dispatches through a real registry so subscription
// semantics match production.
type fakeTransport struct {
	registry *events.Registry

	mu          sync.Mutex
	connected   bool
	tokens      []string
	disconnects int
	sent        []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{registry: events.NewRegistry(zerolog.Nop())}
}

func (f *fakeTransport) Connect(token string) {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	f.disconnects++
	f.connected = false
	f.mu.Unlock()
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
	state := realtime.Disconnected
	if v {
		state = realtime.Connected
	}
	_ = f.registry.Dispatch(events.Connection, realtime.ConnectionStatus{State: state})
}

func (f *fakeTransport) SendChatMessage(content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return realtime.ErrNotConnected
	}
	f.sent = append(f.sent, content)
	return nil
}

func (f *fakeTransport) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeTransport) push(cat events.Category, payload any) {
	_ = f.registry.Dispatch(cat, payload)
}

func (f *fakeTransport) OnChatMessage(fn func(models.ChatMessageEvent)) *events.Subscription {
	return f.registry.Register(events.ChatMessage, func(p any) { fn(p.(models.ChatMessageEvent)) })
}

func (f *fakeTransport) OnTaskUpdate(fn func(models.TaskUpdate)) *events.Subscription {
	return f.registry.Register(events.TaskUpdate, func(p any) { fn(p.(models.TaskUpdate)) })
}

func (f *fakeTransport) OnProactiveUpdate(fn func(models.ProactiveUpdate)) *events.Subscription {
	return f.registry.Register(events.ProactiveUpdate, func(p any) { fn(p.(models.ProactiveUpdate)) })
}

func (f *fakeTransport) OnNotification(fn func(models.Notification)) *events.Subscription {
	return f.registry.Register(events.Notification, func(p any) { fn(p.(models.Notification)) })
}

func (f *fakeTransport) OnConnectionChange(fn func(realtime.ConnectionStatus)) *events.Subscription {
	return f.registry.Register(events.Connection, func(p any) { fn(p.(realtime.ConnectionStatus)) })
}

type toast struct {
	kind    models.NotificationType
	message string
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []toast
}

func (r *recordingNotifier) Notify(kind models.NotificationType, message string) {
	r.mu.Lock()
	r.toasts = append(r.toasts, toast{kind, message})
	r.mu.Unlock()
}

func (r *recordingNotifier) Toasts() []toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]toast(nil), r.toasts...)
}

// stepClock advances one second per call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}
