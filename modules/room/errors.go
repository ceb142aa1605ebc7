package room

import "errors"

// Sentinel errors for room coordination.
var (
	// ErrInvalidRequest is returned when a request is missing required fields.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRoomNotFound is returned when a room does not exist or has no members.
	ErrRoomNotFound = errors.New("room not found")

	// ErrBroadcastFailure marks a fan-out that found no recipient.
	ErrBroadcastFailure = errors.New("broadcast failure")

	// ErrEngineStopped is returned when work is submitted after the engine has stopped.
	ErrEngineStopped = errors.New("room engine stopped")
)

// Wire error codes carried in error payloads.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeRoomNotFound   = "ROOM_NOT_FOUND"
	CodeRateLimited    = "RATE_LIMITED"
	CodeUnknownEvent   = "UNKNOWN_EVENT"
	CodeInternal       = "INTERNAL_ERROR"
)

// errorCode maps a handler error to its wire code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, ErrRoomNotFound):
		return CodeRoomNotFound
	default:
		return CodeInternal
	}
}
