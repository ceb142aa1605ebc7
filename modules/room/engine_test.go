package room

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/collab-room-server/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects delivered effects and published notices.
type recorder struct {
	mu      sync.Mutex
	effects []Effect
	notices []any
}

func (r *recorder) Deliver(effects []Effect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = append(r.effects, effects...)
}

func (r *recorder) publish(n any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) events(name string) []Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Effect
	for _, e := range r.effects {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

func startEngine(t *testing.T, router *Router) (*Engine, *recorder, context.CancelFunc) {
	t.Helper()
	rec := &recorder{}
	engine := NewEngine(router, rec, rec.publish, &mockLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-engine.Done()
	})
	return engine, rec, cancel
}

func TestEngine_ConnectJoinQuery(t *testing.T) {
	engine, rec, _ := startEngine(t, newTestRouter())
	ctx := context.Background()

	var attached string
	conn, err := engine.Connect(ctx, func(id string) { attached = id })
	require.NoError(t, err)
	assert.Equal(t, conn, attached)
	require.Len(t, rec.events(EventConnectionConfirmed), 1)

	join := json.RawMessage(`{"roomId":"room-1","userData":{"id":"u1","name":"Alice"},"isCreating":true}`)
	require.NoError(t, engine.Dispatch(ctx, conn, EventJoinRoom, join))
	require.Len(t, rec.events(EventRoomUsers), 1)

	exists, err := engine.RoomExists(ctx, "room-1")
	require.NoError(t, err)
	assert.True(t, exists.Exists)
	assert.Equal(t, 1, exists.UserCount)

	rooms, err := engine.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms.Rooms, 1)
	assert.Equal(t, "Alice", rooms.Rooms[0].LeaderName)

	require.NoError(t, engine.Disconnect(ctx, conn))
	require.NoError(t, engine.Disconnect(ctx, conn))

	stats, err := engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatsResponse{}, stats)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	var created, deleted bool
	for _, n := range rec.notices {
		switch n.(type) {
		case events.RoomCreatedEvent:
			created = true
		case events.RoomDeletedEvent:
			deleted = true
		}
	}
	assert.True(t, created)
	assert.True(t, deleted)
}

func TestEngine_ContainsHandlerPanic(t *testing.T) {
	router := newTestRouter()
	router.handlers["explode"] = func(string, json.RawMessage) (Outcome, error) {
		panic("boom")
	}
	engine, rec, _ := startEngine(t, router)
	ctx := context.Background()

	conn, err := engine.Connect(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, engine.Dispatch(ctx, conn, "explode", nil))

	errs := rec.events(EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, []string{conn}, errs[0].To)
	assert.Equal(t, CodeInternal, errs[0].Payload.(ErrorPayload).Code)

	// the loop keeps serving other work
	stats, err := engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveSessions)
}

func TestEngine_StoppedRejectsWork(t *testing.T) {
	engine, _, cancel := startEngine(t, newTestRouter())
	cancel()
	<-engine.Done()

	_, err := engine.Connect(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrEngineStopped))

	_, err = engine.ListRooms(context.Background())
	assert.True(t, errors.Is(err, ErrEngineStopped))
}

func TestEngine_QueryHonoursDeadline(t *testing.T) {
	// no Run loop: nothing drains the inbox
	engine := NewEngine(newTestRouter(), nil, nil, &mockLogger{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := engine.RoomExists(ctx, "room-1")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestEngine_ReplyDelivers(t *testing.T) {
	engine, rec, _ := startEngine(t, newTestRouter())
	ctx := context.Background()

	conn, err := engine.Connect(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, engine.Reply(ctx, conn, EventError, ErrorPayload{Message: "slow down", Code: CodeRateLimited}))

	errs := rec.events(EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, CodeRateLimited, errs[0].Payload.(ErrorPayload).Code)
}
