package metrics

import (
	"context"
	"fmt"

	"github.com/example/collab-room-server/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module keeps the presence metrics current by consuming room events.
type Module struct {
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)

// NewModule creates a new metrics module.
func NewModule(logger types.Logger) *Module {
	return &Module{logger: logger}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "metrics"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Metrics module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Metrics module stopped")
	return nil
}

// RegisterEventConsumers subscribes to the room events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.ConnectionOpenedV1, m.handleConnectionOpened, m,
	); err != nil {
		return fmt.Errorf("failed to register ConnectionOpened consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.ConnectionClosedV1, m.handleConnectionClosed, m,
	); err != nil {
		return fmt.Errorf("failed to register ConnectionClosed consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomCreatedV1, m.handleRoomCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomDeletedV1, m.handleRoomDeleted, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomDeleted consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserJoinedV1, m.handleUserJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register UserJoined consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserLeftV1, m.handleUserLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register UserLeft consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.LeaderChangedV1, m.handleLeaderChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register LeaderChanged consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.ChatMessagePostedV1, m.handleChatMessagePosted, m,
	); err != nil {
		return fmt.Errorf("failed to register ChatMessagePosted consumer: %w", err)
	}

	m.logger.Info("Registered room event consumers")
	return nil
}

func (m *Module) handleConnectionOpened(_ context.Context, event events.ConnectionOpenedEvent, _ *mono.Msg) error {
	ActiveConnections.Set(float64(event.TotalUsers))
	return nil
}

func (m *Module) handleConnectionClosed(_ context.Context, event events.ConnectionClosedEvent, _ *mono.Msg) error {
	ActiveConnections.Set(float64(event.TotalUsers))
	return nil
}

func (m *Module) handleRoomCreated(_ context.Context, event events.RoomCreatedEvent, _ *mono.Msg) error {
	ActiveRooms.Inc()
	m.logger.Debug("Room created", "roomID", event.RoomID, "leader", event.LeaderName)
	return nil
}

func (m *Module) handleRoomDeleted(_ context.Context, event events.RoomDeletedEvent, _ *mono.Msg) error {
	ActiveRooms.Dec()
	m.logger.Debug("Room deleted", "roomID", event.RoomID)
	return nil
}

func (m *Module) handleUserJoined(_ context.Context, event events.UserJoinedEvent, _ *mono.Msg) error {
	kind := "join"
	if event.Reconnected {
		kind = "reconnect"
	}
	RoomJoins.WithLabelValues(kind).Inc()
	return nil
}

func (m *Module) handleUserLeft(_ context.Context, _ events.UserLeftEvent, _ *mono.Msg) error {
	RoomLeaves.Inc()
	return nil
}

func (m *Module) handleLeaderChanged(_ context.Context, _ events.LeaderChangedEvent, _ *mono.Msg) error {
	LeaderChanges.Inc()
	return nil
}

func (m *Module) handleChatMessagePosted(_ context.Context, _ events.ChatMessagePostedEvent, _ *mono.Msg) error {
	ChatMessages.Inc()
	return nil
}
