// Package sessions holds the chat session state machine: the single source
// of truth for one visible transcript. It merges replies from the
// synchronous request path with events from the live push channel.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Desarso/advisorchat/api"
	"github.com/Desarso/advisorchat/events"
	"github.com/Desarso/advisorchat/models"
	"github.com/Desarso/advisorchat/realtime"
)

// ChatSession is safe for concurrent use. Its methods never return errors:
// failures land in the transcript, in State.Error and in the Notifier.
//
// The transcript is append-only except for LoadHistory (replace) and
// ClearMessages (reset). Replies arriving on both the synchronous path and
// the push channel are both kept; nothing is deduplicated.
type ChatSession struct {
	api            API
	transport      Transport
	notifier       Notifier
	logger         zerolog.Logger
	now            func() time.Time
	newID          func() string
	requestTimeout time.Duration

	mu        sync.Mutex
	state     State
	inFlight  int
	observers []func(State)
	subs      events.Group
	started   bool
	closed    bool

	// notifyMu orders observer calls; delivered is the last Version sent.
	notifyMu  sync.Mutex
	delivered uint64
}

// Snapshot returns a deep copy of the current state.
func (s *ChatSession) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// OnChange registers fn to receive a snapshot after every state change.
// Calls happen outside the session lock, on whichever goroutine made the
// change, one at a time and in Version order. A snapshot overtaken by a
// newer one before delivery is skipped. fn must not call back into the
// session.
func (s *ChatSession) OnChange(fn func(State)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// update applies fn under the lock and then notifies observers.
func (s *ChatSession) update(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	s.state.Version++
	observers := append([]func(State){}, s.observers...)
	var snap State
	if len(observers) > 0 {
		snap = s.state.clone()
	}
	s.mu.Unlock()

	if len(observers) == 0 {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if snap.Version <= s.delivered {
		return
	}
	s.delivered = snap.Version
	for _, obs := range observers {
		obs(snap)
	}
}

// Start subscribes to every push category and, when token is non-empty,
// connects the transport. Calling it again, or after Close, does nothing.
func (s *ChatSession) Start(token string) {
	s.mu.Lock()
	if s.started || s.closed || s.transport == nil {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	t := s.transport
	s.subs.Add(
		t.OnChatMessage(s.handleChatMessage),
		t.OnTaskUpdate(s.handleTaskUpdate),
		t.OnProactiveUpdate(s.handleProactiveUpdate),
		t.OnNotification(s.handleNotification),
		t.OnConnectionChange(s.handleConnectionChange),
	)
	if s.isClosed() {
		s.subs.UnsubscribeAll()
		return
	}
	connected := t.IsConnected()
	s.update(func(st *State) { st.IsConnected = connected })

	if token != "" {
		t.Connect(token)
	}
	s.logger.Debug().Msg("session started")
}

// Close releases every subscription and disconnects the transport. It is
// idempotent and the session ignores push events afterwards.
func (s *ChatSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	s.subs.UnsubscribeAll()
	if started && s.transport != nil {
		s.transport.Disconnect()
	}
	s.update(func(st *State) { st.IsConnected = false })
	s.logger.Debug().Msg("session closed")
}

func (s *ChatSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *ChatSession) beginRequest(fn func(st *State)) {
	s.update(func(st *State) {
		s.inFlight++
		st.IsLoading = true
		if fn != nil {
			fn(st)
		}
	})
}

// endRequest must run inside update.
func (s *ChatSession) endRequest(st *State) {
	s.inFlight--
	st.IsLoading = s.inFlight > 0
}

func (s *ChatSession) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout > 0 {
		return context.WithTimeout(ctx, s.requestTimeout)
	}
	return context.WithCancel(ctx)
}

// SendMessage appends content as a user entry, posts it and appends the
// reply (or an error entry). It blocks until the request settles. Blank
// content is ignored.
func (s *ChatSession) SendMessage(ctx context.Context, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}

	userMsg := models.Message{
		ID:        s.newID(),
		Role:      models.RoleUser,
		Content:   content,
		Timestamp: s.now(),
	}
	var sessionID string
	s.beginRequest(func(st *State) {
		st.Messages = append(st.Messages, userMsg)
		st.Error = ""
		sessionID = st.SessionID
	})

	reqCtx, cancel := s.requestContext(ctx)
	resp, err := s.api.SendMessage(reqCtx, content, sessionID)
	cancel()

	if err != nil {
		text := errorText(err)
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("send failed")
		errMsg := models.Message{
			ID:        s.newID(),
			Role:      models.RoleAssistant,
			Content:   text,
			Timestamp: s.now(),
			Metadata:  &models.Metadata{Context: ErrorContext},
		}
		s.update(func(st *State) {
			st.Messages = append(st.Messages, errMsg)
			st.Error = text
			s.endRequest(st)
		})
		s.notifier.Notify(models.NotificationError, text)
		return
	}

	reply := models.Message{
		ID:        s.newID(),
		Role:      models.RoleAssistant,
		Content:   resp.ReplyText(),
		Timestamp: s.now(),
		Metadata:  models.NewMetadata(resp.ToolCalls, resp.ActionRequired, resp.Context),
	}
	s.update(func(st *State) {
		st.Messages = append(st.Messages, reply)
		if resp.SessionID != "" {
			st.SessionID = resp.SessionID
		}
		s.endRequest(st)
	})

	if resp.ActionRequired {
		s.notifier.Notify(models.NotificationSuccess, ActionRequiredNotice)
	}
	s.forwardLive(content)
}

// forwardLive pushes content for fan-out to the user's other devices. It is
// best effort and never changes the outcome of the send.
func (s *ChatSession) forwardLive(content string) {
	if s.transport == nil || !s.transport.IsConnected() {
		return
	}
	if err := s.transport.SendChatMessage(content); err != nil {
		s.logger.Warn().Err(err).Msg("live forward dropped")
	}
}

// errorText picks the server's error field, then its message field, then the
// transport error text, then a generic fallback.
func errorText(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if apiErr.ServerError != "" {
			return apiErr.ServerError
		}
		if apiErr.ServerMessage != "" {
			return apiErr.ServerMessage
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultSendErrorText
}

// LoadHistory replaces the transcript with the server's copy of sessionID,
// or of the current session when sessionID is empty. On failure the existing
// transcript is kept.
func (s *ChatSession) LoadHistory(ctx context.Context, sessionID string) {
	target := sessionID
	s.beginRequest(func(st *State) {
		if target == "" {
			target = st.SessionID
		}
	})

	reqCtx, cancel := s.requestContext(ctx)
	entries, err := s.api.GetHistory(reqCtx, target)
	cancel()

	if err != nil {
		s.logger.Error().Err(err).Str("session_id", target).Msg("loading history failed")
		s.update(func(st *State) {
			st.Error = HistoryLoadErrorText
			s.endRequest(st)
		})
		return
	}

	messages := make([]models.Message, 0, len(entries))
	for _, e := range entries {
		messages = append(messages, s.fromHistory(e))
	}
	s.update(func(st *State) {
		st.Messages = messages
		if sessionID != "" {
			st.SessionID = sessionID
		}
		s.endRequest(st)
	})
	s.logger.Debug().Int("messages", len(messages)).Str("session_id", target).Msg("history loaded")
}

func (s *ChatSession) fromHistory(e models.HistoryEntry) models.Message {
	id := string(e.ID)
	if id == "" {
		id = s.newID()
	}
	if !e.Role.Valid() {
		s.logger.Warn().Str("role", string(e.Role)).Msg("history entry with unknown role")
	}
	md := e.Metadata
	if md == nil {
		md = models.NewMetadata(e.ToolCalls, e.ActionRequired, e.Context)
	}
	return models.Message{
		ID:        id,
		Role:      e.Role,
		Content:   e.Content,
		Timestamp: e.Timestamp.Time,
		Metadata:  md,
	}
}

// ClearMessages empties the transcript and forgets the session id. Loading
// and error state are left alone.
func (s *ChatSession) ClearMessages() {
	s.update(func(st *State) {
		st.Messages = nil
		st.SessionID = ""
	})
}

// AddSystemMessage appends a local system entry.
func (s *ChatSession) AddSystemMessage(content string) {
	msg := models.Message{
		ID:        s.newID(),
		Role:      models.RoleSystem,
		Content:   content,
		Timestamp: s.now(),
	}
	s.update(func(st *State) { st.Messages = append(st.Messages, msg) })
}

// appendPushed appends msg in arrival order even when its timestamp is
// older than the tail.
func (s *ChatSession) appendPushed(msg models.Message, clearLoading bool) {
	s.update(func(st *State) {
		if n := len(st.Messages); n > 0 && msg.Timestamp.Before(st.Messages[n-1].Timestamp) {
			s.logger.Warn().
				Time("tail", st.Messages[n-1].Timestamp).
				Time("pushed", msg.Timestamp).
				Msg("pushed message is older than the transcript tail")
		}
		st.Messages = append(st.Messages, msg)
		if clearLoading {
			st.IsLoading = false
		}
	})
}

func (s *ChatSession) handleChatMessage(ev models.ChatMessageEvent) {
	if s.isClosed() {
		return
	}
	role := ev.Role
	if !role.Valid() {
		role = models.RoleAssistant
	}
	s.appendPushed(models.Message{
		ID:        s.newID(),
		Role:      role,
		Content:   ev.Content,
		Timestamp: ev.Timestamp.Or(s.now()),
		Metadata:  models.NewMetadata(ev.ToolCalls, ev.ActionRequired, ""),
	}, true)
}

func (s *ChatSession) handleTaskUpdate(ev models.TaskUpdate) {
	if s.isClosed() {
		return
	}
	s.notifier.Notify(models.NotificationSuccess, fmt.Sprintf(taskUpdateNoticeFormat, ev.Type, ev.Status))
}

func (s *ChatSession) handleProactiveUpdate(ev models.ProactiveUpdate) {
	if s.isClosed() {
		return
	}
	if ev.ActionRequired {
		s.notifier.Notify(models.NotificationSuccess, ProactiveActionNotice)
	}
	s.appendPushed(models.Message{
		ID:        s.newID(),
		Role:      models.RoleSystem,
		Content:   ProactiveMessagePrefix + ev.Response,
		Timestamp: ev.Timestamp.Or(s.now()),
		Metadata:  models.NewMetadata(ev.ToolCalls, ev.ActionRequired, ""),
	}, false)
}

func (s *ChatSession) handleNotification(ev models.Notification) {
	if s.isClosed() {
		return
	}
	s.notifier.Notify(ev.Type.Normalize(), ev.Message)
}

func (s *ChatSession) handleConnectionChange(st realtime.ConnectionStatus) {
	if s.isClosed() {
		return
	}
	connected := st.Connected()
	s.update(func(state *State) { state.IsConnected = connected })
}
