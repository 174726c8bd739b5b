package sessions

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Option configures a ChatSession.
type Option func(*ChatSession)

func WithNotifier(n Notifier) Option {
	return func(s *ChatSession) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *ChatSession) { s.logger = logger }
}

// WithClock overrides the time source used to stamp local entries.
func WithClock(now func() time.Time) Option {
	return func(s *ChatSession) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRequestTimeout bounds each synchronous request. Zero means no bound
// beyond the caller's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *ChatSession) { s.requestTimeout = d }
}

// NewChatSession creates an idle session. transport may be nil, in which
// case only the synchronous path is used.
func NewChatSession(api API, transport Transport, opts ...Option) *ChatSession {
	s := &ChatSession{
		api:       api,
		transport: transport,
		notifier:  nopNotifier{},
		logger:    zerolog.Nop(),
		now:       time.Now,
		newID:     newMessageID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "chat_session").Logger()
	return s
}

// newMessageID returns a time-ordered UUID so ids sort like insertion order.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
