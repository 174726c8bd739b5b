package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Desarso/advisorchat/api"
	"github.com/Desarso/advisorchat/devserver"
	"github.com/Desarso/advisorchat/models"
	"github.com/Desarso/advisorchat/sessions"
	"github.com/Desarso/advisorchat/stores"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func startDevServer(t *testing.T) (*devserver.Server, *httptest.Server) {
	t.Helper()
	store, err := stores.NewSQLiteStoreSimple(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	srv := devserver.New(devserver.DefaultConfig(), store)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Start(ctx))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		cancel()
		ts.Close()
		_ = store.Close()
	})
	return srv, ts
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "version flag", args: []string{"--version"}, want: "dev (commit: unknown)"},
		{name: "help flag", args: []string{"--help"}, want: "advisorchat chat"},
		{name: "unknown command", args: []string{"bogus"}, wantErr: true},
		{name: "bad log level", args: []string{"token", "--user", "ada", "--log-level", "loud"}, wantErr: true},
		{name: "bad api url", args: []string{"history", "--api-url", "nowhere"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("DEVSERVER_JWT_SECRET", "cli-secret")

	out, err := execute(t, "", "token", "--user", "ada")
	require.NoError(t, err)

	claims, err := devserver.NewTokenIssuer("cli-secret", time.Hour).Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ada", claims.UserID)

	_, err = execute(t, "", "token")
	assert.Error(t, err)
}

func TestHistoryCommand(t *testing.T) {
	srv, ts := startDevServer(t)
	token, err := srv.Tokens().Issue("ada")
	require.NoError(t, err)

	out, err := execute(t, "", "history", "--api-url", ts.URL, "--token", token)
	require.NoError(t, err)
	assert.Contains(t, out, "no messages")

	client := api.New(api.Options{BaseURL: ts.URL, Token: token})
	reply, err := client.SendMessage(context.Background(), "remind me about the audit", "")
	require.NoError(t, err)

	out, err = execute(t, "", "history", "--api-url", ts.URL, "--token", token, "--session", reply.SessionID)
	require.NoError(t, err)
	assert.Contains(t, out, "remind me about the audit")
	assert.Contains(t, out, "You said: remind me about the audit")
	assert.Contains(t, out, "action required")

	out, err = execute(t, "", "history", "--api-url", ts.URL, "--token", token, "--list")
	require.NoError(t, err)
	assert.Contains(t, out, reply.SessionID)
	assert.Contains(t, out, "(2 messages)")

	_, err = execute(t, "", "history", "--api-url", ts.URL, "--token", "stale")
	assert.Error(t, err)
}

func TestChatCommand(t *testing.T) {
	srv, ts := startDevServer(t)
	token, err := srv.Tokens().Issue("ada")
	require.NoError(t, err)

	out, err := execute(t, "hello\n/bogus\n/clear\n/quit\nnever sent\n", "chat", "--api-url", ts.URL, "--token", token)
	require.NoError(t, err)
	assert.Contains(t, out, "You said: hello")
	assert.Contains(t, out, "unknown command")
	assert.Contains(t, out, "transcript cleared")
	assert.NotContains(t, out, "never sent")
}

func TestChatRequiresToken(t *testing.T) {
	t.Setenv("ADVISOR_AUTH_TOKEN", "")
	_, err := execute(t, "", "chat")
	assert.ErrorContains(t, err, "no token")
}

func TestRenderMessage(t *testing.T) {
	reply := renderMessage(models.Message{
		Role:      models.RoleAssistant,
		Content:   "Drafted the email.",
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Metadata: &models.Metadata{
			ToolCalls:      []models.ToolCall{models.ToolCall(`{"name":"send_email"}`)},
			ActionRequired: true,
		},
	})
	assert.Contains(t, reply, "assistant")
	assert.Contains(t, reply, "Drafted the email.")
	assert.Contains(t, reply, "tools: send_email")
	assert.Contains(t, reply, "action required")

	failed := renderMessage(models.Message{
		Role:     models.RoleAssistant,
		Content:  "Failed to send message",
		Metadata: &models.Metadata{Context: sessions.ErrorContext},
	})
	assert.Contains(t, failed, "Failed to send message")
	assert.NotContains(t, failed, "action required")

	assert.Contains(t, renderMessage(models.Message{Role: models.RoleUser, Content: "hi"}), "you")
}

func TestPrinterNotify(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf}
	p.Notify(models.NotificationSuccess, "Task updated: email - completed")
	p.Notify(models.NotificationType("odd"), "still printed")
	assert.Contains(t, buf.String(), "[success] Task updated: email - completed")
	assert.Contains(t, buf.String(), "[odd] still printed")
}

func TestReplRenderSkipsStaleSnapshots(t *testing.T) {
	var buf bytes.Buffer
	r := newRepl(nil, &printer{w: &buf})
	first := models.Message{ID: "1", Role: models.RoleAssistant, Content: "push-A"}
	second := models.Message{ID: "2", Role: models.RoleAssistant, Content: "reply-B"}

	r.render(sessions.State{Version: 2, Messages: []models.Message{first, second}})
	r.render(sessions.State{Version: 1, Messages: []models.Message{first}})

	assert.Equal(t, 1, strings.Count(buf.String(), "push-A"))
	assert.Equal(t, 1, strings.Count(buf.String(), "reply-B"))
}
