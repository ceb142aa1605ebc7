package room

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
)

// Deliverer hands effects to the transport. Deliver must not block.
type Deliverer interface {
	Deliver(effects []Effect)
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(effects []Effect)

// Deliver calls f.
func (f DelivererFunc) Deliver(effects []Effect) { f(effects) }

// Publisher receives domain notices after the mutation that produced them.
type Publisher func(notice any)

const defaultInboxSize = 1024

// Engine serializes every state change through one goroutine so the Store
// never sees concurrent access.
type Engine struct {
	router    *Router
	deliverer Deliverer
	publish   Publisher
	logger    types.Logger

	inbox    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// NewEngine creates an engine around router.
func NewEngine(router *Router, deliverer Deliverer, publish Publisher, logger types.Logger) *Engine {
	if publish == nil {
		publish = func(any) {}
	}
	return &Engine{
		router:    router,
		deliverer: deliverer,
		publish:   publish,
		logger:    logger,
		inbox:     make(chan func(), defaultInboxSize),
		done:      make(chan struct{}),
	}
}

// SetDeliverer replaces the deliverer. It must be called before Run.
func (e *Engine) SetDeliverer(d Deliverer) {
	e.deliverer = d
}

// Run processes submitted work until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	defer e.stopOnce.Do(func() { close(e.done) })

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Room engine stopping")
			return
		case work := <-e.inbox:
			e.run(work)
		}
	}
}

// run executes work, containing any panic so the loop keeps serving.
func (e *Engine) run(work func()) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("Recovered panic in room engine", "panic", fmt.Sprint(rec))
		}
	}()
	work()
}

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// submit queues work and waits until the engine ran it.
func (e *Engine) submit(ctx context.Context, work func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		work()
	}

	select {
	case e.inbox <- wrapped:
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// apply runs fn on the engine goroutine, delivers its effects and publishes
// its notices. A panic in fn is contained and reported to replyTo.
func (e *Engine) apply(ctx context.Context, replyTo string, fn func() Outcome) error {
	return e.submit(ctx, func() {
		var out Outcome
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					e.logger.Error("Recovered panic while handling event",
						"connectionID", replyTo,
						"panic", fmt.Sprint(rec),
						"stack", string(debug.Stack()))
					out = Outcome{}
					if replyTo != "" {
						out.add(sendToConnection(replyTo, EventError, ErrorPayload{
							Message: "internal error",
							Code:    CodeInternal,
						}))
					}
				}
			}()
			out = fn()
		}()

		if e.deliverer != nil && len(out.Effects) > 0 {
			e.deliverer.Deliver(out.Effects)
		}
		for _, n := range out.Notices {
			e.publish(n)
		}
	})
}

// Connect registers a new connection and returns its id. attach, when set,
// runs with the new id before the connection's first effects are delivered.
func (e *Engine) Connect(ctx context.Context, attach func(connID string)) (string, error) {
	ids := make(chan string, 1)
	err := e.apply(ctx, "", func() Outcome {
		id, out := e.router.Connect()
		ids <- id
		if attach != nil {
			attach(id)
		}
		return out
	})
	if err != nil {
		return "", err
	}
	select {
	case id := <-ids:
		return id, nil
	default:
		return "", fmt.Errorf("connection was not registered")
	}
}

// Disconnect runs the full cleanup for connID. It is safe to call more than once.
func (e *Engine) Disconnect(ctx context.Context, connID string) error {
	return e.apply(ctx, "", func() Outcome {
		return e.router.Disconnect(connID)
	})
}

// Dispatch handles one inbound event from connID.
func (e *Engine) Dispatch(ctx context.Context, connID, event string, payload json.RawMessage) error {
	return e.apply(ctx, connID, func() Outcome {
		return e.router.Dispatch(connID, event, payload)
	})
}

// Reply sends a single event to connID through the delivery path.
func (e *Engine) Reply(ctx context.Context, connID, event string, payload any) error {
	return e.apply(ctx, connID, func() Outcome {
		var out Outcome
		out.add(sendToConnection(connID, event, payload))
		return out
	})
}

// query runs a read on the engine goroutine and returns its result.
func query[T any](ctx context.Context, e *Engine, read func() T) (T, error) {
	results := make(chan T, 1)
	if err := e.submit(ctx, func() { results <- read() }); err != nil {
		var zero T
		return zero, err
	}
	select {
	case res := <-results:
		return res, nil
	default:
		var zero T
		return zero, fmt.Errorf("room query failed")
	}
}

// RoomExists answers an existence probe without mutating state.
func (e *Engine) RoomExists(ctx context.Context, roomID string) (ExistsResponse, error) {
	return query(ctx, e, func() ExistsResponse { return e.router.Probe(roomID) })
}

// ListRooms returns the current room summaries.
func (e *Engine) ListRooms(ctx context.Context) (ListRoomsResponse, error) {
	return query(ctx, e, func() ListRoomsResponse {
		return ListRoomsResponse{Rooms: e.router.Summaries()}
	})
}

// Stats returns server-wide counters.
func (e *Engine) Stats(ctx context.Context) (StatsResponse, error) {
	return query(ctx, e, e.router.Stats)
}
