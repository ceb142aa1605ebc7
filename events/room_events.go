package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// ConnectionOpenedEvent is emitted when a transport connection is registered.
type ConnectionOpenedEvent struct {
	ConnectionID string    `json:"connection_id"`
	TotalUsers   int       `json:"total_users"`
	Timestamp    time.Time `json:"timestamp"`
}

// ConnectionClosedEvent is emitted after a connection has been cleaned up.
type ConnectionClosedEvent struct {
	ConnectionID string    `json:"connection_id"`
	RoomsLeft    int       `json:"rooms_left"`
	TotalUsers   int       `json:"total_users"`
	Timestamp    time.Time `json:"timestamp"`
}

// RoomCreatedEvent is emitted when a join-with-create brings a room into existence.
type RoomCreatedEvent struct {
	RoomID       string    `json:"room_id"`
	ConnectionID string    `json:"connection_id"`
	LeaderName   string    `json:"leader_name"`
	Timestamp    time.Time `json:"timestamp"`
}

// RoomDeletedEvent is emitted when the last member leaves a room.
type RoomDeletedEvent struct {
	RoomID    string    `json:"room_id"`
	Timestamp time.Time `json:"timestamp"`
}

// UserJoinedEvent is emitted when a user joins a room.
type UserJoinedEvent struct {
	RoomID       string    `json:"room_id"`
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Reconnected  bool      `json:"reconnected"`
	MemberCount  int       `json:"member_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// UserLeftEvent is emitted when a user leaves a room.
type UserLeftEvent struct {
	RoomID       string    `json:"room_id"`
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	MemberCount  int       `json:"member_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// LeaderChangedEvent is emitted when room leadership moves to another member.
type LeaderChangedEvent struct {
	RoomID         string    `json:"room_id"`
	NewLeaderID    string    `json:"new_leader_id"`
	NewLeaderName  string    `json:"new_leader_name"`
	PreviousLeader string    `json:"previous_leader"`
	Timestamp      time.Time `json:"timestamp"`
}

// ChatMessagePostedEvent is emitted when a new chat message enters a room history.
type ChatMessagePostedEvent struct {
	RoomID    string    `json:"room_id"`
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the room domain.
var (
	ConnectionOpenedV1 = helper.EventDefinition[ConnectionOpenedEvent](
		"room",
		"ConnectionOpened",
		"v1",
	)

	ConnectionClosedV1 = helper.EventDefinition[ConnectionClosedEvent](
		"room",
		"ConnectionClosed",
		"v1",
	)

	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"room",
		"RoomCreated",
		"v1",
	)

	RoomDeletedV1 = helper.EventDefinition[RoomDeletedEvent](
		"room",
		"RoomDeleted",
		"v1",
	)

	UserJoinedV1 = helper.EventDefinition[UserJoinedEvent](
		"room",
		"UserJoined",
		"v1",
	)

	UserLeftV1 = helper.EventDefinition[UserLeftEvent](
		"room",
		"UserLeft",
		"v1",
	)

	LeaderChangedV1 = helper.EventDefinition[LeaderChangedEvent](
		"room",
		"LeaderChanged",
		"v1",
	)

	ChatMessagePostedV1 = helper.EventDefinition[ChatMessagePostedEvent](
		"room",
		"ChatMessagePosted",
		"v1",
	)
)
