package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/collab-room-server/modules/room"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)          {}
func (m *mockLogger) Info(msg string, args ...any)           {}
func (m *mockLogger) Warn(msg string, args ...any)           {}
func (m *mockLogger) Error(msg string, args ...any)          {}
func (m *mockLogger) With(args ...any) types.Logger          { return m }
func (m *mockLogger) WithError(err error) types.Logger       { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

// fakeConn records text frames written to it.
type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	closed   bool
	writeErr error
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	if messageType == websocket.TextMessage {
		c.frames = append(c.frames, append([]byte(nil), data...))
	}
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.frames...)
}

// countingObserver tallies deliveries per event.
type countingObserver struct {
	mu        sync.Mutex
	delivered map[string]int
	dropped   map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{delivered: map[string]int{}, dropped: map[string]int{}}
}

func (o *countingObserver) MessageDelivered(event string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delivered[event]++
}

func (o *countingObserver) MessageDropped(event string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped[event]++
}

func TestHub_DeliverEncodesEnvelope(t *testing.T) {
	hub := NewHub(&mockLogger{})
	obs := newCountingObserver()
	hub.SetObserver(obs)

	a := NewClient("a", &fakeConn{}, 4)
	b := NewClient("b", &fakeConn{}, 4)
	hub.Register(a)
	hub.Register(b)

	hub.Deliver([]room.Effect{{
		To:      []string{"a", "b", "gone"},
		Event:   room.EventGlobalUserCount,
		Payload: room.GlobalUserCount{TotalUsers: 2},
	}})

	require.Len(t, a.send, 1)
	require.Len(t, b.send, 1)

	var env room.Envelope
	require.NoError(t, json.Unmarshal(<-a.send, &env))
	assert.Equal(t, room.EventGlobalUserCount, env.Type)
	assert.JSONEq(t, `{"totalUsers":2}`, string(env.Payload))

	assert.Equal(t, 2, obs.delivered[room.EventGlobalUserCount])
	assert.Equal(t, 1, obs.dropped[room.EventGlobalUserCount])
}

func TestHub_DropsWhenQueueFull(t *testing.T) {
	hub := NewHub(&mockLogger{})
	obs := newCountingObserver()
	hub.SetObserver(obs)

	slow := NewClient("slow", &fakeConn{}, 1)
	hub.Register(slow)

	effect := room.Effect{To: []string{"slow"}, Event: room.EventCursorMoved, Payload: map[string]int{"x": 1}}
	hub.Deliver([]room.Effect{effect, effect, effect})

	assert.Len(t, slow.send, 1)
	assert.Equal(t, 1, obs.delivered[room.EventCursorMoved])
	assert.Equal(t, 2, obs.dropped[room.EventCursorMoved])
}

func TestHub_UnregisterStopsWriteLoop(t *testing.T) {
	hub := NewHub(&mockLogger{})
	conn := &fakeConn{}
	client := NewClient("c1", conn, 8)
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		client.WriteLoop()
	}()

	hub.Deliver([]room.Effect{{To: []string{"c1"}, Event: room.EventUserJoined, Payload: map[string]string{"id": "u1"}}})
	assert.Eventually(t, func() bool { return len(conn.written()) == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister("c1")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write loop did not stop after unregister")
	}
	assert.Zero(t, hub.ClientCount())
	assert.Nil(t, hub.GetClient("c1"))

	// delivery to a closed client is a drop, not a panic
	assert.False(t, client.enqueue([]byte("late")))
}

func TestClient_WriteFailureClosesClient(t *testing.T) {
	conn := &fakeConn{writeErr: errors.New("broken pipe")}
	client := NewClient("c1", conn, 2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		client.WriteLoop()
	}()

	require.True(t, client.enqueue([]byte(`{}`)))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write loop did not stop after a failed write")
	}
	assert.False(t, client.enqueue([]byte(`{}`)))

	// the socket is closed too, so the reader side unblocks
	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.True(t, conn.closed)
}

func TestHub_RunClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub(&mockLogger{})
	conn := &fakeConn{}
	hub.Register(NewClient("c1", conn, 1))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	hub.Wait()

	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.True(t, conn.closed)
	assert.Zero(t, hub.ClientCount())
}
