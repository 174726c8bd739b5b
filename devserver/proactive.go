package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Desarso/advisorchat/events"
	"github.com/Desarso/advisorchat/models"
)

// ProactiveFunc decides what, if anything, the agent did on its own for a
// user. Returning ok=false skips the user this round.
type ProactiveFunc func(ctx context.Context, userID string, now time.Time) (update models.ProactiveUpdate, ok bool)

// InboxDigest is the default ProactiveFunc: a periodic inbox check that
// never needs action.
func InboxDigest(_ context.Context, _ string, now time.Time) (models.ProactiveUpdate, bool) {
	data, _ := json.Marshal(map[string]any{"checkedAt": now.UTC().Format(time.RFC3339)})
	return models.ProactiveUpdate{
		EventType: "inbox_scan",
		EventData: data,
		Response:  "Checked your inbox, nothing needs your attention.",
		Timestamp: models.Timestamp{Time: now},
	}, true
}

// ProactiveScheduler pushes proactive updates to connected users on a cron schedule.
type ProactiveScheduler struct {
	cron   *cron.Cron
	spec   string
	hub    *Hub
	fn     ProactiveFunc
	now    func() time.Time
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	runs   int
}

// NewProactiveScheduler creates a scheduler; fn nil means InboxDigest.
func NewProactiveScheduler(spec string, hub *Hub, fn ProactiveFunc, logger zerolog.Logger) *ProactiveScheduler {
	if fn == nil {
		fn = InboxDigest
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ProactiveScheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		spec:   spec,
		hub:    hub,
		fn:     fn,
		now:    time.Now,
		logger: logger.With().Str("component", "proactive").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers the job and starts the cron loop.
func (s *ProactiveScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(s.ctx) }); err != nil {
		return fmt.Errorf("invalid proactive schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", s.spec).Msg("proactive updates scheduled")
	return nil
}

// Stop waits for a running job to finish.
func (s *ProactiveScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cancel()
	s.logger.Info().Msg("proactive scheduler stopped")
}

// RunOnce pushes one round of updates and returns how many users got one.
func (s *ProactiveScheduler) RunOnce(ctx context.Context) int {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	sent := 0
	now := s.now()
	for _, userID := range s.hub.Users() {
		update, ok := s.fn(ctx, userID, now)
		if !ok {
			continue
		}
		if err := s.hub.Publish(userID, events.ProactiveUpdate, update); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("publishing proactive update")
			continue
		}
		if update.ActionRequired {
			_ = s.hub.Publish(userID, events.Notification, models.Notification{
				Type:      models.NotificationWarning,
				Message:   "The assistant needs your input on " + update.EventType,
				Timestamp: models.Timestamp{Time: now},
			})
		}
		sent++
	}
	s.logger.Debug().Int("users", sent).Msg("proactive round")
	return sent
}

// Runs counts rounds started so far.
func (s *ProactiveScheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}
