package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/collab-room-server/modules/broadcast"
	"github.com/example/collab-room-server/modules/room"
	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// engineRooms serves RoomPort straight from an engine, without the service container.
type engineRooms struct {
	engine *room.Engine
}

func (e engineRooms) RoomExists(ctx context.Context, roomID string) (*room.ExistsResponse, error) {
	resp, err := e.engine.RoomExists(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (e engineRooms) ListRooms(ctx context.Context) (*room.ListRoomsResponse, error) {
	resp, err := e.engine.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (e engineRooms) Stats(ctx context.Context) (*room.StatsResponse, error) {
	resp, err := e.engine.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

type liveServer struct {
	app    *fiber.App
	engine *room.Engine
	hub    *broadcast.Hub
	url    string
}

// startLiveServer runs a real engine, hub and Fiber listener on a random port.
func startLiveServer(t *testing.T, settings Settings) *liveServer {
	t.Helper()
	logger := &mockLogger{}

	hub := broadcast.NewHub(logger)
	engine := room.NewEngine(room.NewRouter(room.NewStore(room.DefaultHistorySize), logger), hub, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx)
	go hub.Run(ctx)

	m := NewModule(settings, logger)
	m.rooms = engineRooms{engine: engine}
	m.gateway = engine
	m.hub = hub
	app := m.newApp()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()

	t.Cleanup(func() {
		cancel()
		<-engine.Done()
		hub.Wait()
		_ = app.ShutdownWithTimeout(time.Second)
	})

	return &liveServer{
		app:    app,
		engine: engine,
		hub:    hub,
		url:    "ws://" + ln.Addr().String() + "/ws",
	}
}

func dial(t *testing.T, url string) *fastws.Conn {
	t.Helper()
	var conn *fastws.Conn
	require.Eventually(t, func() bool {
		c, _, err := fastws.DefaultDialer.Dial(url, nil)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 2*time.Second, 20*time.Millisecond)
	return conn
}

func send(t *testing.T, conn *fastws.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(fastws.TextMessage, []byte(frame)))
}

// readUntil reads envelopes until match accepts one or the deadline passes.
func readUntil(t *testing.T, conn *fastws.Conn, match func(room.Envelope) bool) room.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var env room.Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		if match(env) {
			return env
		}
	}
}

func errorWithCode(code string) func(room.Envelope) bool {
	return func(env room.Envelope) bool {
		if env.Type != room.EventError {
			return false
		}
		var p room.ErrorPayload
		return json.Unmarshal(env.Payload, &p) == nil && p.Code == code
	}
}

func ofType(event string) func(room.Envelope) bool {
	return func(env room.Envelope) bool { return env.Type == event }
}

func TestWebSocket_SessionLifecycle(t *testing.T) {
	srv := startLiveServer(t, Settings{
		Port:              3000,
		QueryTimeout:      time.Second,
		MessagesPerSecond: 0.001,
		MessageBurst:      2,
	})

	conn := dial(t, srv.url)
	readUntil(t, conn, ofType(room.EventConnectionConfirmed))

	// first token: a malformed frame is answered, not dispatched
	send(t, conn, `not json`)
	readUntil(t, conn, errorWithCode(room.CodeInvalidRequest))

	// second token: a real join
	send(t, conn, `{"type":"join-room","payload":{"roomId":"ws-room","userData":{"id":"u1","name":"Ada"},"isCreating":true}}`)
	users := readUntil(t, conn, ofType(room.EventRoomUsers))
	assert.Contains(t, string(users.Payload), `"name":"Ada"`)

	// the bucket is empty now
	send(t, conn, `{"type":"typing-start","payload":{"roomId":"ws-room","userId":"u1"}}`)
	readUntil(t, conn, errorWithCode(room.CodeRateLimited))

	status, body := doRequest(t, srv.app, httptest.NewRequest(http.MethodGet, "/rooms", nil))
	require.Equal(t, fiber.StatusOK, status)
	var list RoomListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, "ws-room", list.Rooms[0].ID)

	// dropping the socket runs the full disconnect cleanup
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		stats, err := srv.engine.Stats(context.Background())
		return err == nil && stats.ActiveRooms == 0 && stats.ActiveSessions == 0 && srv.hub.ClientCount() == 0
	}, 3*time.Second, 20*time.Millisecond)

	status, body = doRequest(t, srv.app, httptest.NewRequest(http.MethodGet, "/rooms", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"rooms":[]}`, string(body))
}

func TestWebSocket_LeaderHandoffOnDisconnect(t *testing.T) {
	srv := startLiveServer(t, Settings{Port: 3000, QueryTimeout: time.Second})

	a := dial(t, srv.url)
	readUntil(t, a, ofType(room.EventConnectionConfirmed))
	send(t, a, `{"type":"join-room","payload":{"roomId":"handoff","userData":{"id":"ua","name":"A"},"isCreating":true}}`)
	readUntil(t, a, ofType(room.EventRoomUsers))

	b := dial(t, srv.url)
	defer b.Close()
	readUntil(t, b, ofType(room.EventConnectionConfirmed))
	send(t, b, `{"type":"join-room","payload":{"roomId":"handoff","userData":{"id":"ub","name":"B"},"isCreating":false}}`)
	readUntil(t, b, ofType(room.EventRoomUsers))

	require.NoError(t, a.Close())

	changed := readUntil(t, b, ofType(room.EventLeaderChanged))
	var payload room.LeaderChanged
	require.NoError(t, json.Unmarshal(changed.Payload, &payload))
	assert.Equal(t, "ub", payload.NewLeaderUserID)

	resp, err := srv.engine.RoomExists(context.Background(), "handoff")
	require.NoError(t, err)
	assert.True(t, resp.Exists)
	assert.Equal(t, 1, resp.UserCount)
}
