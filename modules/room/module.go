package room

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/collab-room-server/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

const healthTimeout = 2 * time.Second

// Module hosts the room coordination engine inside the mono application.
type Module struct {
	engine       *Engine
	eventBus     mono.EventBus
	logger       types.Logger
	cancelEngine context.CancelFunc
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the room module. Rooms keep historySize chat messages.
func NewModule(historySize int, logger types.Logger) *Module {
	m := &Module{logger: logger}
	m.engine = NewEngine(NewRouter(NewStore(historySize), logger), nil, m.publish, logger)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "room"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.ConnectionOpenedV1.ToBase(),
		events.ConnectionClosedV1.ToBase(),
		events.RoomCreatedV1.ToBase(),
		events.RoomDeletedV1.ToBase(),
		events.UserJoinedV1.ToBase(),
		events.UserLeftV1.ToBase(),
		events.LeaderChangedV1.ToBase(),
		events.ChatMessagePostedV1.ToBase(),
	}
}

// RegisterServices registers the read-only query services.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceRoomExists,
		json.Unmarshal,
		json.Marshal,
		m.roomExists,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRoomExists, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceListRooms,
		json.Unmarshal,
		json.Marshal,
		m.listRooms,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListRooms, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceServerStats,
		json.Unmarshal,
		json.Marshal,
		m.serverStats,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceServerStats, err)
	}

	m.logger.Info("Registered room services",
		"services", []string{ServiceRoomExists, ServiceListRooms, ServiceServerStats})
	return nil
}

// Start runs the engine loop.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelEngine = cancel
	go m.engine.Run(ctx)
	m.logger.Info("Room module started")
	return nil
}

// Stop halts the engine loop and waits for it to exit.
func (m *Module) Stop(ctx context.Context) error {
	if m.cancelEngine == nil {
		return nil
	}
	m.cancelEngine()
	select {
	case <-m.engine.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	m.logger.Info("Room module stopped")
	return nil
}

// Health reports live room and session counts.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	stats, err := m.engine.Stats(ctx)
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: err.Error(),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"active_rooms":    stats.ActiveRooms,
			"active_sessions": stats.ActiveSessions,
		},
	}
}

// Engine returns the engine for the transport layer.
func (m *Module) Engine() *Engine {
	return m.engine
}

// SetDeliverer connects the engine to the transport. Call before Start.
func (m *Module) SetDeliverer(d Deliverer) {
	m.engine.SetDeliverer(d)
}

func (m *Module) roomExists(ctx context.Context, req ExistsRequest, _ *mono.Msg) (ExistsResponse, error) {
	return m.engine.RoomExists(ctx, req.RoomID)
}

func (m *Module) listRooms(ctx context.Context, _ ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	return m.engine.ListRooms(ctx)
}

func (m *Module) serverStats(ctx context.Context, _ StatsRequest, _ *mono.Msg) (StatsResponse, error) {
	return m.engine.Stats(ctx)
}

// publish forwards a notice to the event bus.
func (m *Module) publish(notice any) {
	if m.eventBus == nil {
		return
	}

	var err error
	switch ev := notice.(type) {
	case events.ConnectionOpenedEvent:
		err = events.ConnectionOpenedV1.Publish(m.eventBus, ev, nil)
	case events.ConnectionClosedEvent:
		err = events.ConnectionClosedV1.Publish(m.eventBus, ev, nil)
	case events.RoomCreatedEvent:
		err = events.RoomCreatedV1.Publish(m.eventBus, ev, nil)
	case events.RoomDeletedEvent:
		err = events.RoomDeletedV1.Publish(m.eventBus, ev, nil)
	case events.UserJoinedEvent:
		err = events.UserJoinedV1.Publish(m.eventBus, ev, nil)
	case events.UserLeftEvent:
		err = events.UserLeftV1.Publish(m.eventBus, ev, nil)
	case events.LeaderChangedEvent:
		err = events.LeaderChangedV1.Publish(m.eventBus, ev, nil)
	case events.ChatMessagePostedEvent:
		err = events.ChatMessagePostedV1.Publish(m.eventBus, ev, nil)
	default:
		m.logger.Warn("Dropping unknown notice", "type", fmt.Sprintf("%T", notice))
		return
	}
	if err != nil {
		m.logger.Warn("Failed to publish room event", "type", fmt.Sprintf("%T", notice), "error", err)
	}
}
