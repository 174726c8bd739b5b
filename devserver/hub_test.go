package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Desarso/advisorchat/events"
	"github.com/Desarso/advisorchat/models"
	"github.com/Desarso/advisorchat/realtime"
)

func dialWS(t *testing.T, srv *Server, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	before := srv.Hub().Connections(userOf(t, srv, token))
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	// the handshake completes before the hub registers the connection
	require.Eventually(t, func() bool {
		return srv.Hub().Connections(userOf(t, srv, token)) == before+1
	}, time.Second, 5*time.Millisecond)
	return conn
}

func userOf(t *testing.T, srv *Server, token string) string {
	t.Helper()
	claims, err := srv.Tokens().Validate(token)
	require.NoError(t, err)
	return claims.UserID
}

func readEvent(t *testing.T, conn *websocket.Conn) (events.Category, any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	category, payload, err := realtime.DecodeEnvelope(frame)
	require.NoError(t, err)
	return category, payload
}

// expectSilence fails if a frame arrives within a short window. The
// connection is unusable afterwards.
func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, frame, err := conn.ReadMessage()
	assert.Error(t, err, "unexpected frame %s", frame)
}

func TestWebsocketRequiresToken(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebsocketTokenQueryParameter(t *testing.T) {
	srv, ts := newTestServer(t, Config{})
	token := issue(t, srv, "ada")
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.Hub().Connections("ada") == 1 }, time.Second, 5*time.Millisecond)
}

func TestChatMessageRelayedToOtherConnections(t *testing.T) {
	srv, ts := newTestServer(t, Config{})
	ada := issue(t, srv, "ada")
	sender := dialWS(t, srv, ts, ada)
	sibling := dialWS(t, srv, ts, ada)
	stranger := dialWS(t, srv, ts, issue(t, srv, "grace"))

	frame, err := realtime.EncodeEnvelope(events.ChatMessage, models.OutgoingChatMessage{Content: "from laptop"})
	require.NoError(t, err)
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, frame))

	category, payload := readEvent(t, sibling)
	assert.Equal(t, events.ChatMessage, category)
	msg := payload.(models.ChatMessageEvent)
	assert.Equal(t, models.RoleUser, msg.Role)
	assert.Equal(t, "from laptop", msg.Content)
	assert.False(t, msg.Timestamp.IsZero())

	expectSilence(t, sender)
	expectSilence(t, stranger)
}

func TestPublishTargetsOneUser(t *testing.T) {
	srv, ts := newTestServer(t, Config{})
	ada := dialWS(t, srv, ts, issue(t, srv, "ada"))
	grace := dialWS(t, srv, ts, issue(t, srv, "grace"))
	assert.ElementsMatch(t, []string{"ada", "grace"}, srv.Hub().Users())

	require.NoError(t, srv.Hub().Publish("ada", events.Notification, models.Notification{
		Type:    models.NotificationSuccess,
		Message: "Email sent",
	}))

	category, payload := readEvent(t, ada)
	assert.Equal(t, events.Notification, category)
	assert.Equal(t, "Email sent", payload.(models.Notification).Message)
	expectSilence(t, grace)
}

func TestBroadcastReachesEveryone(t *testing.T) {
	srv, ts := newTestServer(t, Config{})
	ada := dialWS(t, srv, ts, issue(t, srv, "ada"))
	grace := dialWS(t, srv, ts, issue(t, srv, "grace"))

	require.NoError(t, srv.Hub().Broadcast(events.Category("maintenance"), map[string]string{"at": "02:00"}))
	for _, conn := range []*websocket.Conn{ada, grace} {
		category, payload := readEvent(t, conn)
		assert.Equal(t, events.Category("maintenance"), category)
		assert.JSONEq(t, `{"at":"02:00"}`, string(payload.(json.RawMessage)))
	}
}

func TestPushRepliesSendsChatMessageAndTaskUpdate(t *testing.T) {
	srv, ts := newTestServer(t, Config{PushReplies: true})
	token := issue(t, srv, "ada")
	conn := dialWS(t, srv, ts, token)

	status, _ := call(t, ts, token, http.MethodPost, "/api/chat/message", models.ChatRequest{Message: "remind me to call Sam"})
	require.Equal(t, http.StatusOK, status)

	category, payload := readEvent(t, conn)
	require.Equal(t, events.TaskUpdate, category)
	update := payload.(models.TaskUpdate)
	assert.Equal(t, "remind", update.Type)
	assert.Equal(t, models.TaskPending, update.Status)

	category, payload = readEvent(t, conn)
	require.Equal(t, events.ChatMessage, category)
	msg := payload.(models.ChatMessageEvent)
	assert.Equal(t, models.RoleAssistant, msg.Role)
	assert.Equal(t, "You said: remind me to call Sam", msg.Content)
	assert.True(t, msg.ActionRequired)
}

func TestHubClosesConnectionsOnShutdown(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.serve(w, r, "ada")
	}))
	defer ts.Close()
	go hub.Run(ctx)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Connections("ada") == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	assert.ErrorAs(t, err, &closeErr)

	// publishing after shutdown does not block
	assert.NoError(t, hub.Publish("ada", events.Notification, models.Notification{Message: "late"}))
}
