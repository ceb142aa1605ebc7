package room

import (
	"encoding/json"
	"time"

	domain "github.com/example/collab-room-server/domain/room"
)

// Client to server events.
const (
	EventJoinRoom       = "join-room"
	EventLeaveRoom      = "leave-room"
	EventChatMessage    = "chat-message"
	EventCustomMessage  = "custom-message"
	EventDocumentUpdate = "document-update"
	EventShareDocument  = "share-document"
	EventCursorUpdate   = "cursor-update"
	EventTypingStart    = "typing-start"
	EventTypingStop     = "typing-stop"
	EventWritingUpdate  = "writing-update"
)

// Server to client events.
const (
	EventConnectionConfirmed = "connection-confirmed"
	EventGlobalUserCount     = "global-user-count"
	EventRoomUsers           = "room-users"
	EventUserJoined          = "user-joined"
	EventUserLeft            = "user-left"
	EventLeaderChanged       = "room-leader-changed"
	EventChatHistory         = "chat-history"
	EventRoomDocuments       = "room-documents"
	EventRoomJoinError       = "room-join-error"
	EventDocumentUpdated     = "document-updated"
	EventDocumentShared      = "document-shared"
	EventCursorMoved         = "cursor-moved"
	EventUserTyping          = "user-typing"
	EventError               = "error"
)

// Envelope is the frame exchanged over the websocket in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// UserData is the identity a client presents when joining.
type UserData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// JoinRequest is the join-room payload.
type JoinRequest struct {
	RoomID     string    `json:"roomId"`
	UserData   *UserData `json:"userData"`
	IsCreating bool      `json:"isCreating"`
}

// LeaveRequest is the leave-room payload.
type LeaveRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// ChatRequest is the chat-message payload.
type ChatRequest struct {
	RoomID  string              `json:"roomId"`
	Message *domain.ChatMessage `json:"message"`
}

// CustomRequest is the custom-message payload. Message stays opaque.
type CustomRequest struct {
	RoomID  string          `json:"roomId"`
	Message json.RawMessage `json:"message"`
}

// DocumentUpdateRequest is the document-update payload.
type DocumentUpdateRequest struct {
	RoomID     string `json:"roomId"`
	DocumentID string `json:"documentId"`
	Content    string `json:"content"`
	UserID     string `json:"userId"`
}

// ShareDocumentRequest is the share-document payload.
type ShareDocumentRequest struct {
	RoomID       string                 `json:"roomId"`
	DocumentData *domain.DocumentRecord `json:"documentData"`
	UserID       string                 `json:"userId"`
}

// CursorRequest is the cursor-update payload.
type CursorRequest struct {
	RoomID         string          `json:"roomId"`
	UserID         string          `json:"userId"`
	UserName       string          `json:"userName"`
	Color          string          `json:"color,omitempty"`
	CursorPosition json.RawMessage `json:"cursorPosition"`
}

// TypingRequest is the typing-start and typing-stop payload.
type TypingRequest struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

// roomScoped extracts the roomId of any room-scoped payload.
type roomScoped struct {
	RoomID string `json:"roomId"`
}

// ConnectionConfirmed is sent to a connection right after it is registered.
type ConnectionConfirmed struct {
	SocketID            string    `json:"socketId"`
	Timestamp           time.Time `json:"timestamp"`
	TotalConnectedUsers int       `json:"totalConnectedUsers"`
}

// GlobalUserCount is broadcast to every connection when the count changes.
type GlobalUserCount struct {
	TotalUsers int `json:"totalUsers"`
}

// UserJoinedNotice is sent to existing members when someone joins.
type UserJoinedNotice struct {
	domain.MemberView
	Reconnected bool `json:"reconnected"`
}

// LeaderChanged announces a new room leader.
type LeaderChanged struct {
	NewLeaderID     string `json:"newLeaderId"`
	NewLeaderName   string `json:"newLeaderName"`
	NewLeaderUserID string `json:"newLeaderUserId"`
}

// JoinError is the room-join-error payload.
type JoinError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorPayload is the generic error payload.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// DocumentUpdated is relayed to other members after a document edit.
type DocumentUpdated struct {
	DocumentID string    `json:"documentId"`
	Content    string    `json:"content"`
	UserID     string    `json:"userId"`
	Timestamp  time.Time `json:"timestamp"`
}

// CursorMoved is relayed to other members after a cursor update.
type CursorMoved struct {
	UserID         string          `json:"userId"`
	UserName       string          `json:"userName"`
	Color          string          `json:"color,omitempty"`
	CursorPosition json.RawMessage `json:"cursorPosition,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// UserTyping is relayed to other members on typing-start and typing-stop.
type UserTyping struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
	IsTyping bool   `json:"isTyping"`
}
