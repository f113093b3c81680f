package e2e

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-presence/observability"
	"chat-presence/runtime"
	"chat-presence/transport/ws"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// newEngine boots the full stack in-process: registries, router worker, and
// the websocket transport behind an httptest server.
func newEngine(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	monitoring := observability.NewMonitoringManager(logger)
	presence := runtime.NewPresenceRegistry()
	rooms := runtime.NewRoomRegistry()
	server := ws.NewServer(logger, ws.Options{SendQueueSize: cfg.SendQueueSize}, monitoring)
	router := runtime.NewRouter(logger, presence, rooms, server, monitoring, 64)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = router.Run(ctx) }()

	mux := http.NewServeMux()
	mux.Handle("/ws", server.Handler(router))
	ts := httptest.NewServer(mux)

	t.Cleanup(func() {
		ts.Close()
		server.Shutdown()
		cancel()
	})
	return ts
}

type client struct {
	t    *testing.T
	cfg  Config
	conn *websocket.Conn
}

func dial(t *testing.T, cfg Config, ts *httptest.Server) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, cfg: cfg, conn: conn}
}

func (c *client) emit(kind string, data any) {
	c.t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(c.t, err)
	frame, err := json.Marshal(map[string]json.RawMessage{
		"event": json.RawMessage(`"` + kind + `"`),
		"data":  payload,
	})
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, frame))
}

// waitFor reads frames until one of the given kind arrives, skipping
// broadcasts of other kinds that interleave with it.
func (c *client) waitFor(kind string) map[string]any {
	c.t.Helper()
	deadline := time.Now().Add(c.cfg.ReadTimeout)
	for {
		require.NoError(c.t, c.conn.SetReadDeadline(deadline))
		_, raw, err := c.conn.ReadMessage()
		require.NoErrorf(c.t, err, "waiting for %q", kind)

		if c.cfg.DebugJSON {
			c.t.Logf("frame: %s", raw)
		}

		var frame struct {
			Event string         `json:"event"`
			Data  map[string]any `json:"data"`
		}
		require.NoError(c.t, json.Unmarshal(raw, &frame))
		if frame.Event == kind {
			return frame.Data
		}
	}
}

// requireNext asserts the very next frame, with nothing interleaved.
func (c *client) requireNext(kind string) map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)))
	_, raw, err := c.conn.ReadMessage()
	require.NoError(c.t, err)

	var frame struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(c.t, json.Unmarshal(raw, &frame))
	require.Equal(c.t, kind, frame.Event)
	return frame.Data
}

func TestScenario_PresenceRoomMessagingAndDisconnect(t *testing.T) {
	req := require.New(t)
	cfg, err := LoadConfig()
	req.NoError(err)

	ts := newEngine(t, cfg)
	alice := dial(t, cfg, ts)
	bob := dial(t, cfg, ts)

	// Presence: each registration re-broadcasts the full active list
	alice.emit("register-presence", map[string]any{"userId": "alice"})
	data := alice.waitFor("active-user-ids")
	req.ElementsMatch([]any{"alice"}, data["userIds"])

	bob.emit("register-presence", map[string]any{"userId": "bob"})
	// Bob drains both presence broadcasts: alice's and his own
	bob.waitFor("active-user-ids")
	data = bob.waitFor("active-user-ids")
	req.ElementsMatch([]any{"alice", "bob"}, data["userIds"])

	// Room membership: the second join reaches both subscribers
	alice.emit("join-room", map[string]any{"roomId": "r1", "userId": "alice"})
	data = alice.waitFor("room-members")
	req.ElementsMatch([]any{"alice"}, data["userIds"])

	bob.emit("join-room", map[string]any{"roomId": "r1", "userId": "bob"})
	data = bob.waitFor("room-members")
	req.ElementsMatch([]any{"alice", "bob"}, data["userIds"])
	data = alice.waitFor("room-members")
	req.ElementsMatch([]any{"alice", "bob"}, data["userIds"])

	// Messaging: bob is in-room, so he sees the message then the preview
	alice.emit("send-message", map[string]any{
		"roomId": "r1", "senderId": "alice", "receiverIds": []string{"bob"}, "message": "hi",
	})

	data = bob.requireNext("message-received")
	req.Equal("alice", data["senderId"])
	req.Equal("hi", data["message"])
	data = bob.requireNext("latest-message-preview")
	req.Equal("hi", data["message"])

	// The originating device refreshes its list without re-receiving the
	// message
	data = alice.requireNext("latest-message-preview")
	req.Equal("hi", data["message"])

	// Typing indicator flows without any room check
	alice.emit("typing", map[string]any{
		"receiverIds": []string{"bob"}, "sender": "alice", "roomId": "r1",
	})
	data = bob.waitFor("typing-state")
	req.Equal(true, data["typing"])
	req.Equal("alice", data["senderId"])

	alice.emit("stop-typing", map[string]any{
		"receiverIds": []string{"bob"}, "sender": "alice", "roomId": "r1",
	})
	data = bob.waitFor("typing-state")
	req.Equal(false, data["typing"])

	// Disconnect cleanup: the survivor gets the updated member list
	req.NoError(bob.conn.Close())
	data = alice.waitFor("room-members")
	req.ElementsMatch([]any{"alice"}, data["userIds"])
}

func TestScenario_MessageToUnknownRoomIsSilentlyDropped(t *testing.T) {
	req := require.New(t)
	cfg, err := LoadConfig()
	req.NoError(err)

	ts := newEngine(t, cfg)
	alice := dial(t, cfg, ts)
	bob := dial(t, cfg, ts)

	alice.emit("register-presence", map[string]any{"userId": "alice"})
	alice.waitFor("active-user-ids")
	bob.emit("register-presence", map[string]any{"userId": "bob"})

	// Bob drains both presence broadcasts: alice's and his own
	bob.waitFor("active-user-ids")
	data := bob.waitFor("active-user-ids")
	req.ElementsMatch([]any{"alice", "bob"}, data["userIds"])

	// When bob posts into a room nobody ever joined
	bob.emit("send-message", map[string]any{
		"roomId": "ghost", "senderId": "bob", "receiverIds": []string{"alice"}, "message": "hi",
	})
	// And then joins a room, which does produce a frame
	bob.emit("join-room", map[string]any{"roomId": "r1", "userId": "bob"})

	// Then the next frame bob sees is the join broadcast, nothing from the
	// dropped message, and no error frame either
	data = bob.requireNext("room-members")
	req.ElementsMatch([]any{"bob"}, data["userIds"])
}
