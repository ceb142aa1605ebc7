package room

import domain "github.com/example/collab-room-server/domain/room"

// Request-reply service names registered by the room module.
const (
	ServiceRoomExists  = "room-exists"
	ServiceListRooms   = "list-rooms"
	ServiceServerStats = "server-stats"
)

// ExistsRequest asks whether a room is live.
type ExistsRequest struct {
	RoomID string `json:"room_id"`
}

// ExistsResponse is the reply to an existence probe.
type ExistsResponse struct {
	Exists    bool    `json:"exists"`
	UserCount int     `json:"userCount"`
	Leader    *string `json:"leader"`
}

// ListRoomsRequest asks for every live room.
type ListRoomsRequest struct{}

// ListRoomsResponse carries the room summaries.
type ListRoomsResponse struct {
	Rooms []domain.RoomSummary `json:"rooms"`
}

// StatsRequest asks for server-wide counters.
type StatsRequest struct{}

// StatsResponse carries server-wide counters.
type StatsResponse struct {
	ActiveRooms    int `json:"activeRooms"`
	ActiveSessions int `json:"activeSessions"`
}
