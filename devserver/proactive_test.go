package devserver

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Desarso/advisorchat/events"
	"github.com/Desarso/advisorchat/models"
)

func TestRunOnceTargetsConnectedUsers(t *testing.T) {
	srv, ts := newTestServer(t, Config{})
	scheduler := NewProactiveScheduler("@every 1h", srv.Hub(), nil, zerolog.Nop())
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	scheduler.now = func() time.Time { return fixed }

	assert.Equal(t, 0, scheduler.RunOnce(context.Background()))

	conn := dialWS(t, srv, ts, issue(t, srv, "ada"))
	assert.Equal(t, 1, scheduler.RunOnce(context.Background()))
	assert.Equal(t, 2, scheduler.Runs())

	category, payload := readEvent(t, conn)
	require.Equal(t, events.ProactiveUpdate, category)
	update := payload.(models.ProactiveUpdate)
	assert.Equal(t, "inbox_scan", update.EventType)
	assert.False(t, update.ActionRequired)
	assert.True(t, update.Timestamp.Equal(fixed))
	assert.JSONEq(t, `{"checkedAt":"2024-05-01T09:00:00Z"}`, string(update.EventData))
}

func TestRunOnceWarnsWhenActionRequired(t *testing.T) {
	needsInput := func(_ context.Context, userID string, now time.Time) (models.ProactiveUpdate, bool) {
		if userID != "ada" {
			return models.ProactiveUpdate{}, false
		}
		return models.ProactiveUpdate{
			EventType:      "meeting_request",
			Response:       "Sam asked to meet on Friday.",
			ActionRequired: true,
			Timestamp:      models.Timestamp{Time: now},
		}, true
	}
	srv, ts := newTestServer(t, Config{}, WithProactiveFunc(needsInput))
	scheduler := NewProactiveScheduler("@every 1h", srv.Hub(), needsInput, zerolog.Nop())

	ada := dialWS(t, srv, ts, issue(t, srv, "ada"))
	grace := dialWS(t, srv, ts, issue(t, srv, "grace"))
	assert.Equal(t, 1, scheduler.RunOnce(context.Background()))

	category, _ := readEvent(t, ada)
	assert.Equal(t, events.ProactiveUpdate, category)
	category, payload := readEvent(t, ada)
	require.Equal(t, events.Notification, category)
	note := payload.(models.Notification)
	assert.Equal(t, models.NotificationWarning, note.Type)
	assert.Contains(t, note.Message, "meeting_request")

	expectSilence(t, grace)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	scheduler := NewProactiveScheduler("every now and then", NewHub(zerolog.Nop()), nil, zerolog.Nop())
	assert.Error(t, scheduler.Start())
}

func TestSchedulerRunsOnCron(t *testing.T) {
	srv, _ := newTestServer(t, Config{ProactiveCron: "@every 1s"})
	require.NotNil(t, srv.Scheduler())
	require.Eventually(t, func() bool { return srv.Scheduler().Runs() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestEchoResponder(t *testing.T) {
	tests := []struct {
		message string
		action  bool
		context string
	}{
		{"hello", false, ""},
		{"Schedule a call with Sam", true, "schedule"},
		{"please FOLLOW UP with Jane", true, "follow up"},
		{"draft an email to the board", true, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			resp, err := EchoResponder{}.Reply(context.Background(), "ada", "s1", tt.message)
			require.NoError(t, err)
			assert.Equal(t, "You said: "+tt.message, resp.ReplyText())
			assert.Equal(t, tt.action, resp.ActionRequired)
			assert.Equal(t, tt.context, resp.Context)
			if tt.action {
				require.Len(t, resp.ToolCalls, 1)
				assert.Equal(t, "create_task", resp.ToolCalls[0].Name())
			} else {
				assert.Empty(t, resp.ToolCalls)
			}
		})
	}
}
