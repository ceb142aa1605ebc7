package room

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// RoomPort is the read-only query surface over the room module.
type RoomPort interface {
	RoomExists(ctx context.Context, roomID string) (*ExistsResponse, error)
	ListRooms(ctx context.Context) (*ListRoomsResponse, error)
	Stats(ctx context.Context) (*StatsResponse, error)
}

// RoomAdapter implements RoomPort using the service container.
type RoomAdapter struct {
	container mono.ServiceContainer
}

// NewRoomAdapter creates a new RoomAdapter.
func NewRoomAdapter(container mono.ServiceContainer) RoomPort {
	if container == nil {
		panic("room: ServiceContainer is nil")
	}
	return &RoomAdapter{container: container}
}

// RoomExists probes whether a room is live.
func (a *RoomAdapter) RoomExists(ctx context.Context, roomID string) (*ExistsResponse, error) {
	req := ExistsRequest{RoomID: roomID}
	var resp ExistsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceRoomExists,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to check room: %w", err)
	}
	return &resp, nil
}

// ListRooms returns every live room.
func (a *RoomAdapter) ListRooms(ctx context.Context) (*ListRoomsResponse, error) {
	req := ListRoomsRequest{}
	var resp ListRoomsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceListRooms,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return &resp, nil
}

// Stats returns server-wide counters.
func (a *RoomAdapter) Stats(ctx context.Context) (*StatsResponse, error) {
	req := StatsRequest{}
	var resp StatsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceServerStats,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &resp, nil
}
