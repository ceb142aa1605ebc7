package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/example/collab-room-server/domain/room"
	"github.com/example/collab-room-server/events"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
)

type handlerFunc func(connID string, payload json.RawMessage) (Outcome, error)

// Router owns the room state and turns inbound connection events into outcomes.
type Router struct {
	store       *Store
	coordinator *Coordinator
	registry    *Registry
	handlers    map[string]handlerFunc
	logger      types.Logger
	now         func() time.Time
}

// NewRouter wires a store, coordinator and registry behind the dispatch table.
func NewRouter(store *Store, logger types.Logger) *Router {
	coordinator := NewCoordinator(store, logger)
	r := &Router{
		store:       store,
		coordinator: coordinator,
		registry:    NewRegistry(coordinator),
		logger:      logger,
		now:         time.Now,
	}
	r.handlers = map[string]handlerFunc{
		EventJoinRoom:       r.handleJoin,
		EventLeaveRoom:      r.handleLeave,
		EventChatMessage:    r.handleChat,
		EventCustomMessage:  r.handleCustom,
		EventDocumentUpdate: r.handleDocumentUpdate,
		EventShareDocument:  r.handleShareDocument,
		EventCursorUpdate:   r.handleCursor,
		EventTypingStart:    r.handleTyping(true),
		EventTypingStop:     r.handleTyping(false),
		EventWritingUpdate:  r.handleWriting,
	}
	return r
}

// Store returns the room store.
func (r *Router) Store() *Store {
	return r.store
}

// Registry returns the connection registry.
func (r *Router) Registry() *Registry {
	return r.registry
}

// Connect registers a new connection and announces the updated user count.
func (r *Router) Connect() (string, Outcome) {
	var out Outcome

	connID := r.registry.OnConnect()
	now := r.now()
	total := r.registry.Count()

	out.add(sendToConnection(connID, EventConnectionConfirmed, ConnectionConfirmed{
		SocketID:            connID,
		Timestamp:           now,
		TotalConnectedUsers: total,
	}))
	out.add(sendToConnections(r.registry.Connections(), EventGlobalUserCount, GlobalUserCount{TotalUsers: total}))
	out.notice(events.ConnectionOpenedEvent{ConnectionID: connID, TotalUsers: total, Timestamp: now})
	return connID, out
}

// Disconnect cleans up every room connID was in. Unknown ids yield an empty outcome.
func (r *Router) Disconnect(connID string) Outcome {
	if !r.registry.Connected(connID) {
		return Outcome{}
	}
	out, roomsLeft := r.registry.OnDisconnect(connID)

	total := r.registry.Count()
	out.add(sendToConnections(r.registry.Connections(), EventGlobalUserCount, GlobalUserCount{TotalUsers: total}))
	out.notice(events.ConnectionClosedEvent{
		ConnectionID: connID,
		RoomsLeft:    roomsLeft,
		TotalUsers:   total,
		Timestamp:    r.now(),
	})
	return out
}

// Dispatch handles one inbound application event from connID. Handler errors
// are answered to the sender only.
func (r *Router) Dispatch(connID, event string, payload json.RawMessage) Outcome {
	handler, ok := r.handlers[event]
	if !ok {
		r.logger.Debug("Unknown event type", "connectionID", connID, "event", event)
		var out Outcome
		out.add(sendToConnection(connID, EventError, ErrorPayload{
			Message: "Unknown message type: " + event,
			Code:    CodeUnknownEvent,
		}))
		return out
	}

	out, err := handler(connID, payload)
	if err != nil {
		r.logger.Warn("Event rejected", "connectionID", connID, "event", event, "error", err)
		return r.rejection(connID, event, err)
	}
	return out
}

func (r *Router) rejection(connID, event string, err error) Outcome {
	var out Outcome
	if event == EventJoinRoom {
		out.add(sendToConnection(connID, EventRoomJoinError, JoinError{
			Error: joinErrorMessage(err),
			Code:  errorCode(err),
		}))
		return out
	}
	out.add(sendToConnection(connID, EventError, ErrorPayload{
		Message: err.Error(),
		Code:    errorCode(err),
	}))
	return out
}

func joinErrorMessage(err error) string {
	var notFound roomNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Sprintf("Room %q does not exist. Please check the room ID or create a new room.", notFound.roomID)
	}
	return err.Error()
}

// roomNotFoundError carries the room id of a failed lookup.
type roomNotFoundError struct {
	roomID string
}

func (e roomNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrRoomNotFound, e.roomID)
}

func (e roomNotFoundError) Unwrap() error {
	return ErrRoomNotFound
}

func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: missing payload", ErrInvalidRequest)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// lookup resolves the room a room-scoped request addresses.
func (r *Router) lookup(roomID string) (*Room, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, fmt.Errorf("%w: roomId is required", ErrInvalidRequest)
	}
	room, ok := r.store.Get(roomID)
	if !ok {
		return nil, roomNotFoundError{roomID: roomID}
	}
	return room, nil
}

func (r *Router) handleJoin(connID string, payload json.RawMessage) (Outcome, error) {
	var req JoinRequest
	if err := decode(payload, &req); err != nil {
		return Outcome{}, err
	}
	result, err := r.registry.OnJoin(connID, req)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return Outcome{}, roomNotFoundError{roomID: strings.TrimSpace(req.RoomID)}
		}
		return Outcome{}, err
	}
	return result.Outcome, nil
}

func (r *Router) handleLeave(connID string, payload json.RawMessage) (Outcome, error) {
	var req LeaveRequest
	if err := decode(payload, &req); err != nil {
		return Outcome{}, err
	}
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		return Outcome{}, fmt.Errorf("%w: roomId is required", ErrInvalidRequest)
	}
	return r.registry.OnLeave(connID, roomID), nil
}

func (r *Router) handleChat(connID string, payload json.RawMessage) (Outcome, error) {
	var out Outcome
	var req ChatRequest
	if err := decode(payload, &req); err != nil {
		return out, err
	}
	if req.Message == nil {
		return out, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	room, err := r.lookup(req.RoomID)
	if err != nil {
		return out, err
	}

	msg := *req.Message
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = r.now()
	}
	if msg.Sender.ID == "" {
		if identity, ok := r.registry.Identity(connID, room.ID); ok {
			msg.Sender = domain.Sender{ID: identity.ID, Name: identity.Name}
		}
	}

	if !room.History().Append(msg) {
		r.logger.Debug("Duplicate chat message dropped", "roomID", room.ID, "messageID", msg.ID)
		return out, nil
	}

	out.add(broadcastToRoom(room, EventChatMessage, msg, connID))
	out.notice(events.ChatMessagePostedEvent{
		RoomID:    room.ID,
		MessageID: msg.ID,
		UserID:    msg.Sender.ID,
		Timestamp: msg.Timestamp,
	})
	return out, nil
}

func (r *Router) handleCustom(connID string, payload json.RawMessage) (Outcome, error) {
	var out Outcome
	var req CustomRequest
	if err := decode(payload, &req); err != nil {
		return out, err
	}
	if len(req.Message) == 0 || string(req.Message) == "null" {
		return out, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	room, err := r.lookup(req.RoomID)
	if err != nil {
		return out, err
	}

	var target struct {
		TargetUserID string `json:"targetUserId"`
	}
	_ = json.Unmarshal(req.Message, &target)

	if target.TargetUserID == "" {
		out.add(broadcastToRoom(room, EventCustomMessage, req.Message, connID))
		return out, nil
	}

	recipients := room.ConnIDsForUser(target.TargetUserID)
	if len(recipients) == 0 {
		r.logger.Warn("Targeted message dropped",
			"roomID", room.ID,
			"targetUserID", target.TargetUserID,
			"error", fmt.Errorf("%w: user %s not in room", ErrBroadcastFailure, target.TargetUserID))
		return out, nil
	}
	out.add(sendToConnections(recipients, EventCustomMessage, req.Message))
	return out, nil
}

func (r *Router) handleDocumentUpdate(connID string, payload json.RawMessage) (Outcome, error) {
	var out Outcome
	var req DocumentUpdateRequest
	if err := decode(payload, &req); err != nil {
		return out, err
	}
	room, err := r.lookup(req.RoomID)
	if err != nil {
		return out, err
	}
	if req.DocumentID == "" {
		return out, fmt.Errorf("%w: documentId is required", ErrInvalidRequest)
	}

	now := r.now()
	if doc, ok := room.Document(req.DocumentID); ok {
		doc.Content = req.Content
		doc.LastModified = &now
		doc.LastModifiedBy = req.UserID
	}

	out.add(broadcastToRoom(room, EventDocumentUpdated, DocumentUpdated{
		DocumentID: req.DocumentID,
		Content:    req.Content,
		UserID:     req.UserID,
		Timestamp:  now,
	}, connID))
	return out, nil
}

func (r *Router) handleShareDocument(connID string, payload json.RawMessage) (Outcome, error) {
	var out Outcome
	var req ShareDocumentRequest
	if err := decode(payload, &req); err != nil {
		return out, err
	}
	room, err := r.lookup(req.RoomID)
	if err != nil {
		return out, err
	}
	if req.DocumentData == nil || req.DocumentData.ID == "" {
		return out, fmt.Errorf("%w: documentData.id is required", ErrInvalidRequest)
	}

	doc := *req.DocumentData
	doc.SharedAt = r.now()
	doc.SharedBy = req.UserID
	room.PutDocument(&doc)

	out.add(broadcastToRoom(room, EventDocumentShared, doc, connID))
	return out, nil
}

func (r *Router) handleCursor(connID string, payload json.RawMessage) (Outcome, error) {
	var out Outcome
	var req CursorRequest
	if err := decode(payload, &req); err != nil {
		return out, err
	}
	room, err := r.lookup(req.RoomID)
	if err != nil {
		return out, err
	}

	out.add(broadcastToRoom(room, EventCursorMoved, CursorMoved{
		UserID:         req.UserID,
		UserName:       req.UserName,
		Color:          req.Color,
		CursorPosition: req.CursorPosition,
		Timestamp:      r.now(),
	}, connID))
	return out, nil
}

func (r *Router) handleTyping(typing bool) handlerFunc {
	return func(connID string, payload json.RawMessage) (Outcome, error) {
		var out Outcome
		var req TypingRequest
		if err := decode(payload, &req); err != nil {
			return out, err
		}
		room, err := r.lookup(req.RoomID)
		if err != nil {
			return out, err
		}

		out.add(broadcastToRoom(room, EventUserTyping, UserTyping{
			UserID:   req.UserID,
			UserName: req.UserName,
			IsTyping: typing,
		}, connID))
		return out, nil
	}
}

func (r *Router) handleWriting(connID string, payload json.RawMessage) (Outcome, error) {
	var out Outcome
	var req roomScoped
	if err := decode(payload, &req); err != nil {
		return out, err
	}
	room, err := r.lookup(req.RoomID)
	if err != nil {
		return out, err
	}
	out.add(broadcastToRoom(room, EventWritingUpdate, payload, connID))
	return out, nil
}

// Summaries returns the read-only room listing.
func (r *Router) Summaries() []domain.RoomSummary {
	return r.store.ListSummaries()
}

// Probe answers an existence check for roomID.
func (r *Router) Probe(roomID string) ExistsResponse {
	room, ok := r.store.Get(roomID)
	if !ok || room.Len() == 0 {
		return ExistsResponse{Exists: false}
	}
	leader := room.LeaderName
	return ExistsResponse{Exists: true, UserCount: room.Len(), Leader: &leader}
}

// Stats returns server-wide counters.
func (r *Router) Stats() StatsResponse {
	return StatsResponse{
		ActiveRooms:    r.store.Len(),
		ActiveSessions: r.registry.Count(),
	}
}
