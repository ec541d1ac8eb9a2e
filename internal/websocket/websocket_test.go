package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/projecty/backend/internal/auth"
	"github.com/projecty/backend/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubParser struct{}

func (stubParser) ParseToken(token string) (*auth.Claims, error) {
	if userID, ok := strings.CutPrefix(token, "valid-"); ok {
		return &auth.Claims{UserID: userID, Username: "user-" + userID}, nil
	}
	return nil, errors.New("bad token")
}

func startServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	go hub.Run()

	r := gin.New()
	r.GET("/ws", NewHandler(hub, stubParser{}).HandleWebSocket)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestPublishReachesUserRoom(t *testing.T) {
	hub, srv := startServer(t)
	conn := dial(t, srv, "valid-alice")

	require.Eventually(t, func() bool { return hub.IsUserOnline("alice") }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, hub.IsUserOnline("bob"))

	err := hub.Publish(context.Background(), realtime.EventLike, realtime.UserRoom("alice"), realtime.Payload{
		Type:        realtime.EventLike,
		PostID:      "p1",
		TriggeredBy: "bob",
		Message:     "bob liked your post",
	})
	require.NoError(t, err)

	msg := readMessage(t, conn)
	assert.Equal(t, "like", msg["type"])
	payload := msg["payload"].(map[string]any)
	assert.Equal(t, "p1", payload["postId"])
	assert.Equal(t, "bob liked your post", payload["message"])
}

func TestPublishToEmptyRoomIsNoop(t *testing.T) {
	hub, _ := startServer(t)
	err := hub.Publish(context.Background(), realtime.EventFollow, realtime.UserRoom("nobody"), nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, hub.RoomSize(realtime.UserRoom("nobody")))
}

func TestRejectsMissingAndInvalidToken(t *testing.T) {
	_, srv := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.Dial(ctx, base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, base+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestPingAndJoinRoom(t *testing.T) {
	hub, srv := startServer(t)
	conn := dial(t, srv, "valid-carol")
	require.Eventually(t, func() bool { return hub.IsUserOnline("carol") }, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping","id":"m1"}`)))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypePong, msg["type"])
	assert.Equal(t, "m1", msg["reply_to"])

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"join_room","payload":"dave"}`)))
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeError, msg["type"])
	assert.Equal(t, 0, hub.RoomSize(realtime.UserRoom("dave")))

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"join_room","payload":"carol"}`)))
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeSystem, msg["type"])
}

func TestMultipleConnectionsShareRoom(t *testing.T) {
	hub, srv := startServer(t)
	a := dial(t, srv, "valid-erin")
	b := dial(t, srv, "valid-erin")

	require.Eventually(t, func() bool { return hub.RoomSize(realtime.UserRoom("erin")) == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), realtime.EventMessage, realtime.UserRoom("erin"), map[string]string{"type": "message"}))
	assert.Equal(t, "message", readMessage(t, a)["type"])
	assert.Equal(t, "message", readMessage(t, b)["type"])

	metrics := hub.GetMetrics()
	assert.Equal(t, int64(2), metrics.ActiveConnections)
	assert.Equal(t, int64(2), metrics.MessagesSent)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(5, 10)

	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow(), "request %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow())

	time.Sleep(300 * time.Millisecond)
	assert.True(t, rl.Allow())
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("bad", "Bad thing")
	assert.Equal(t, MessageTypeError, msg.Type)

	var payload ErrorPayload
	require.NoError(t, msg.ParsePayload(&payload))
	assert.Equal(t, "bad", payload.Code)
	assert.Equal(t, "Bad thing", payload.Message)

	empty := NewMessage(MessageTypePing, nil)
	assert.Error(t, empty.ParsePayload(&payload))
}

func TestShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))
	assert.Error(t, hub.Publish(context.Background(), "like", "user_x", nil))
}
