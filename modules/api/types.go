package api

import (
	"time"

	domain "github.com/example/collab-room-server/domain/room"
	"github.com/example/collab-room-server/modules/uploads"
)

// RoomListResponse is the API response for listing rooms.
type RoomListResponse struct {
	Rooms []domain.RoomSummary `json:"rooms"`
}

// RoomExistsResponse is the API response for an existence probe.
type RoomExistsResponse struct {
	Exists    bool    `json:"exists"`
	UserCount int     `json:"userCount"`
	Leader    *string `json:"leader"`
}

// UploadResponse is the API response for a stored document.
type UploadResponse struct {
	Success  bool              `json:"success"`
	Document *uploads.Document `json:"document"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	Port           int       `json:"port"`
	ActiveRooms    int       `json:"activeRooms"`
	ActiveSessions int       `json:"activeSessions"`
}
