// Package realtime owns the single live connection to the backend push
// channel: connecting with a bearer token, bounded automatic reconnection,
// typed subscriptions and best-effort emission.
package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Desarso/advisorchat/events"
	"github.com/Desarso/advisorchat/models"
)

// ErrNotConnected is returned by Send when the event was dropped.
var ErrNotConnected = errors.New("realtime: not connected")

const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 1000 * time.Millisecond
)

// State is the connection state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ConnectionStatus is the payload of the connection category. Attempt is 0
// for the first dial of a Connect call and counts retries after that.
type ConnectionStatus struct {
	State   State
	Attempt int
	Err     error
}

// Connected reports whether the status is the connected state.
func (s ConnectionStatus) Connected() bool { return s.State == Connected }

// Options configure a Manager. Zero values take the defaults.
type Options struct {
	URL string
	// MaxReconnectAttempts bounds retries after a failed dial or a dropped
	// connection. Negative disables retrying.
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	Dialer               Dialer
	Clock                Clock
	Registry             *events.Registry
	Logger               zerolog.Logger
}

// Manager is the transport connection manager. It never touches chat data;
// everything it learns is dispatched through its registry.
type Manager struct {
	url         string
	maxAttempts int
	delay       time.Duration
	dialer      Dialer
	clock       Clock
	registry    *events.Registry
	logger      zerolog.Logger

	mu       sync.Mutex
	status   ConnectionStatus
	run      *connRun
	lastDone chan struct{}

	writeMu sync.Mutex
}

// connRun is one Connect..Disconnect lifetime, including its retries.
type connRun struct {
	token  string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	sock Socket
}

func (r *connRun) attach(sock Socket) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx.Err() != nil {
		return false
	}
	r.sock = sock
	return true
}

func (r *connRun) socket() Socket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sock
}

func (r *connRun) closeSocket() {
	r.mu.Lock()
	sock := r.sock
	r.sock = nil
	r.mu.Unlock()
	if sock != nil {
		_ = sock.Close()
	}
}

// NewManager creates a disconnected manager.
func NewManager(opts Options) *Manager {
	if opts.MaxReconnectAttempts == 0 {
		opts.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if opts.MaxReconnectAttempts < 0 {
		opts.MaxReconnectAttempts = 0
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = WebsocketDialer{}
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Registry == nil {
		opts.Registry = events.NewRegistry(opts.Logger)
	}

	done := make(chan struct{})
	close(done)

	return &Manager{
		url:         opts.URL,
		maxAttempts: opts.MaxReconnectAttempts,
		delay:       opts.ReconnectDelay,
		dialer:      opts.Dialer,
		clock:       opts.Clock,
		registry:    opts.Registry,
		logger:      opts.Logger.With().Str("component", "realtime").Logger(),
		lastDone:    done,
	}
}

// Connect starts connecting with token. It is a no-op while a previous
// Connect is still active (connected, connecting or waiting to retry).
// Failures are never returned; they surface as connection-state events.
func (m *Manager) Connect(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.run != nil {
		if m.run.token != token {
			m.logger.Debug().Msg("connect with a different token ignored; disconnect first")
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &connRun{
		token:  token,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	prev := m.lastDone
	m.run = run
	m.lastDone = run.done

	go m.supervise(run, prev)
}

// Disconnect tears down the active connection and stops any pending retry.
// It is safe to call when not connected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	run := m.run
	m.run = nil
	m.status = ConnectionStatus{State: Disconnected}
	m.mu.Unlock()

	if run == nil {
		return
	}
	m.logger.Info().Msg("disconnecting")
	run.cancel()
	run.closeSocket()
}

// Done is closed when the most recent Connect has fully stopped, either
// after Disconnect or after reconnection attempts ran out.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastDone
}

// Status returns the most recent connection status, including the retry
// attempt and the error that caused the last drop.
func (m *Manager) Status() ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// State returns the current connection state.
func (m *Manager) State() State { return m.Status().State }

// IsConnected reports whether the live channel is usable right now.
func (m *Manager) IsConnected() bool { return m.State() == Connected }

// Registry exposes the fan-out registry the manager dispatches into.
func (m *Manager) Registry() *events.Registry { return m.registry }

// supervise runs one connection lifetime. All connection-state events of a
// run are emitted from this goroutine, and a new run waits for the previous
// one to finish, so listeners observe transitions in order.
func (m *Manager) supervise(run *connRun, prev <-chan struct{}) {
	defer close(run.done)
	<-prev

	last := Disconnected
	emit := func(st ConnectionStatus) bool {
		m.mu.Lock()
		current := m.run == run
		if current {
			m.status = st
		}
		m.mu.Unlock()
		if !current {
			return false
		}
		last = st.State
		m.dispatchStatus(st)
		return true
	}
	defer func() {
		// torn down by Disconnect: close out whatever state we announced
		if last != Disconnected {
			m.dispatchStatus(ConnectionStatus{State: Disconnected})
		}
	}()

	attempt := 0
	for {
		if !emit(ConnectionStatus{State: Connecting, Attempt: attempt}) {
			return
		}

		sock, err := m.dialer.Dial(run.ctx, m.url, run.token)
		if err == nil {
			if !run.attach(sock) {
				_ = sock.Close()
				return
			}
			attempt = 0
			if !emit(ConnectionStatus{State: Connected}) {
				run.closeSocket()
				return
			}
			m.logger.Info().Str("url", m.url).Msg("connected")
			err = m.readLoop(sock)
			run.closeSocket()
		}
		if run.ctx.Err() != nil {
			return
		}

		m.logger.Warn().Err(err).Int("attempt", attempt).Msg("connection lost")
		if !emit(ConnectionStatus{State: Disconnected, Attempt: attempt, Err: err}) {
			return
		}

		if attempt >= m.maxAttempts {
			m.logger.Error().Int("attempts", attempt).Msg("max reconnection attempts reached")
			m.mu.Lock()
			if m.run == run {
				m.run = nil
			}
			m.mu.Unlock()
			return
		}
		attempt++

		select {
		case <-run.ctx.Done():
			return
		case <-m.clock.After(m.delay):
		}
	}
}

func (m *Manager) readLoop(sock Socket) error {
	for {
		frame, err := sock.ReadMessage()
		if err != nil {
			return err
		}
		m.handleFrame(frame)
	}
}

func (m *Manager) handleFrame(frame []byte) {
	category, payload, err := DecodeEnvelope(frame)
	var partial *PartialPayloadError
	switch {
	case errors.As(err, &partial):
		m.logger.Warn().Strs("fields", partial.Fields).Str("event", string(category)).Msg("dispatching payload with skipped fields")
	case err != nil:
		m.logger.Warn().Err(err).Msg("dropping malformed frame")
		return
	}
	if category == events.Connection {
		m.logger.Warn().Msg("dropping connection event received from server")
		return
	}
	m.logger.Debug().Str("event", string(category)).Msg("received")
	if err := m.registry.Dispatch(category, payload); err != nil {
		m.logger.Warn().Err(err).Str("event", string(category)).Msg("listener failed")
	}
}

func (m *Manager) dispatchStatus(st ConnectionStatus) {
	m.logger.Debug().Stringer("state", st.State).Int("attempt", st.Attempt).Msg("connection state")
	if err := m.registry.Dispatch(events.Connection, st); err != nil {
		m.logger.Warn().Err(err).Msg("connection listener failed")
	}
}

// Send emits payload under category. When not connected the event is
// dropped and ErrNotConnected returned; nothing is queued.
func (m *Manager) Send(category events.Category, payload any) error {
	m.mu.Lock()
	run := m.run
	connected := m.status.State == Connected
	m.mu.Unlock()
	if run == nil || !connected {
		m.logger.Debug().Str("event", string(category)).Msg("not connected, dropping")
		return ErrNotConnected
	}
	sock := run.socket()
	if sock == nil {
		return ErrNotConnected
	}

	frame, err := EncodeEnvelope(category, payload)
	if err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return sock.WriteMessage(frame)
}

// SendChatMessage pushes user text for live fan-out to other devices.
func (m *Manager) SendChatMessage(content string) error {
	return m.Send(events.ChatMessage, models.OutgoingChatMessage{Content: content})
}

// SendTaskUpdate pushes a task change.
func (m *Manager) SendTaskUpdate(task models.TaskUpdate) error {
	return m.Send(events.TaskUpdate, task)
}

// Subscribe registers fn for raw payloads of category.
func (m *Manager) Subscribe(category events.Category, fn events.Listener) *events.Subscription {
	return m.registry.Register(category, fn)
}

func (m *Manager) OnChatMessage(fn func(models.ChatMessageEvent)) *events.Subscription {
	return m.registry.Register(events.ChatMessage, func(p any) {
		if ev, ok := p.(models.ChatMessageEvent); ok {
			fn(ev)
		}
	})
}

func (m *Manager) OnTaskUpdate(fn func(models.TaskUpdate)) *events.Subscription {
	return m.registry.Register(events.TaskUpdate, func(p any) {
		if ev, ok := p.(models.TaskUpdate); ok {
			fn(ev)
		}
	})
}

func (m *Manager) OnProactiveUpdate(fn func(models.ProactiveUpdate)) *events.Subscription {
	return m.registry.Register(events.ProactiveUpdate, func(p any) {
		if ev, ok := p.(models.ProactiveUpdate); ok {
			fn(ev)
		}
	})
}

func (m *Manager) OnNotification(fn func(models.Notification)) *events.Subscription {
	return m.registry.Register(events.Notification, func(p any) {
		if ev, ok := p.(models.Notification); ok {
			fn(ev)
		}
	})
}

func (m *Manager) OnConnectionChange(fn func(ConnectionStatus)) *events.Subscription {
	return m.registry.Register(events.Connection, func(p any) {
		if st, ok := p.(ConnectionStatus); ok {
			fn(st)
		}
	})
}
