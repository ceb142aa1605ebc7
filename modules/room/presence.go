package room

import (
	"fmt"
	"strings"
	"time"

	domain "github.com/example/collab-room-server/domain/room"
	"github.com/example/collab-room-server/events"
	"github.com/go-monolith/mono/pkg/types"
)

const defaultUserName = "Anonymous"

// JoinResult describes a successful join.
type JoinResult struct {
	RoomID      string
	Identity    domain.UserIdentity
	Created     bool
	Reconnected bool

	// ReplacedConnID is the connection whose slot a reconnect took over.
	ReplacedConnID string

	Outcome Outcome
}

// Coordinator runs the presence state machine over a Store.
type Coordinator struct {
	store  *Store
	logger types.Logger
	now    func() time.Time
}

// NewCoordinator creates a coordinator mutating store.
func NewCoordinator(store *Store, logger types.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Join moves connID into the requested room. With IsCreating the room is
// created when absent; otherwise it must already have members.
func (c *Coordinator) Join(connID string, req JoinRequest) (JoinResult, error) {
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" || req.UserData == nil {
		return JoinResult{}, fmt.Errorf("%w: roomId and userData are required", ErrInvalidRequest)
	}

	now := c.now()
	identity := domain.UserIdentity{
		ID:       strings.TrimSpace(req.UserData.ID),
		Name:     strings.TrimSpace(req.UserData.Name),
		JoinedAt: now,
	}
	if identity.Name == "" {
		identity.Name = defaultUserName
	}
	if identity.ID == "" {
		identity.ID = fmt.Sprintf("user_%s_%d", connID, now.UnixMilli())
	}

	room, created, err := c.store.GetOrCreate(roomID, connID, identity, req.IsCreating)
	if err != nil {
		return JoinResult{}, err
	}

	result := JoinResult{RoomID: roomID, Identity: identity, Created: created}

	var member *Member
	if existing, ok := room.Member(connID); ok {
		identity.JoinedAt = existing.Identity.JoinedAt
		member = c.store.AddMember(room, connID, identity)
	} else if oldConnID, ok := c.reconcileReconnect(room, identity.ID, connID); ok {
		member, _ = c.store.ReplaceConnection(room, oldConnID, connID, identity)
		result.Reconnected = true
		result.ReplacedConnID = oldConnID
	} else {
		member = c.store.AddMember(room, connID, identity)
	}
	result.Identity = member.Identity

	if created {
		result.Outcome.notice(events.RoomCreatedEvent{
			RoomID:       roomID,
			ConnectionID: connID,
			LeaderName:   room.LeaderName,
			Timestamp:    now,
		})
	}

	result.Outcome.add(broadcastToRoom(room, EventUserJoined, UserJoinedNotice{
		MemberView:  room.View(member),
		Reconnected: result.Reconnected,
	}, connID))
	result.Outcome.add(sendToConnection(connID, EventRoomUsers, room.Views()))
	result.Outcome.add(sendToConnection(connID, EventChatHistory, room.History().Messages()))
	if docs := room.Documents(); len(docs) > 0 {
		result.Outcome.add(sendToConnection(connID, EventRoomDocuments, docs))
	}

	result.Outcome.notice(events.UserJoinedEvent{
		RoomID:       roomID,
		ConnectionID: connID,
		UserID:       member.Identity.ID,
		Username:     member.Identity.Name,
		Reconnected:  result.Reconnected,
		MemberCount:  room.Len(),
		Timestamp:    now,
	})

	if result.Reconnected {
		c.logger.Info("User reconnected to room",
			"roomID", roomID,
			"userID", member.Identity.ID,
			"connectionID", connID,
			"replacedConnectionID", result.ReplacedConnID)
	} else {
		c.logger.Info("User joined room",
			"roomID", roomID,
			"userID", member.Identity.ID,
			"connectionID", connID,
			"created", created,
			"members", room.Len())
	}
	return result, nil
}

// reconcileReconnect finds a member of room that carries userID under a
// connection other than connID. The earliest such member is returned so a
// user with several stale tabs is folded back into its original slot.
func (c *Coordinator) reconcileReconnect(room *Room, userID, connID string) (string, bool) {
	for _, m := range room.Members() {
		if m.Identity.ID == userID && m.ConnID != connID {
			return m.ConnID, true
		}
	}
	return "", false
}

// Leave removes connID from roomID. Leaving a room the connection is not in
// is a no-op.
func (c *Coordinator) Leave(connID, roomID string) Outcome {
	var out Outcome

	room, ok := c.store.Get(roomID)
	if !ok {
		return out
	}
	previousLeader := room.LeaderID
	removal := c.store.RemoveMember(room, connID)
	if !removal.MemberRemoved {
		return out
	}

	now := c.now()
	departed := removal.Removed
	departedView := domain.MemberView{
		ID:           departed.Identity.ID,
		Name:         departed.Identity.Name,
		SocketID:     departed.ConnID,
		JoinedAt:     departed.Identity.JoinedAt,
		IsOnline:     false,
		IsRoomLeader: previousLeader == connID,
	}

	if removal.RoomDeleted {
		out.notice(events.UserLeftEvent{
			RoomID:       roomID,
			ConnectionID: connID,
			UserID:       departed.Identity.ID,
			Username:     departed.Identity.Name,
			Timestamp:    now,
		})
		out.notice(events.RoomDeletedEvent{RoomID: roomID, Timestamp: now})
		c.logger.Info("Room deleted after last member left", "roomID", roomID, "connectionID", connID)
		return out
	}

	if removal.NewLeaderID != "" {
		leader, _ := room.Member(removal.NewLeaderID)
		out.add(broadcastToRoom(room, EventLeaderChanged, LeaderChanged{
			NewLeaderID:     removal.NewLeaderID,
			NewLeaderName:   removal.NewLeaderName,
			NewLeaderUserID: leader.Identity.ID,
		}, ""))
		out.notice(events.LeaderChangedEvent{
			RoomID:         roomID,
			NewLeaderID:    removal.NewLeaderID,
			NewLeaderName:  removal.NewLeaderName,
			PreviousLeader: previousLeader,
			Timestamp:      now,
		})
		c.logger.Info("Room leader changed",
			"roomID", roomID,
			"previousLeader", previousLeader,
			"newLeader", removal.NewLeaderID)
	}

	out.add(broadcastToRoom(room, EventUserLeft, departedView, ""))
	out.add(broadcastToRoom(room, EventRoomUsers, room.Views(), ""))
	out.notice(events.UserLeftEvent{
		RoomID:       roomID,
		ConnectionID: connID,
		UserID:       departed.Identity.ID,
		Username:     departed.Identity.Name,
		MemberCount:  room.Len(),
		Timestamp:    now,
	})

	c.logger.Info("User left room",
		"roomID", roomID,
		"userID", departed.Identity.ID,
		"connectionID", connID,
		"members", room.Len())
	return out
}
