package room

import (
	"fmt"
	"sort"
	"time"

	domain "github.com/example/collab-room-server/domain/room"
)

// DefaultHistorySize is the number of chat messages a room keeps.
const DefaultHistorySize = 100

// Member is a single connection's presence inside a room.
type Member struct {
	ConnID   string
	Identity domain.UserIdentity

	// slot orders members by join; a reconnect keeps the slot of the member it replaces.
	slot uint64
}

// Room is the in-memory state of one collaboration room.
type Room struct {
	ID         string
	LeaderID   string
	LeaderName string
	CreatedAt  time.Time

	members   map[string]*Member
	history   *History
	documents map[string]*domain.DocumentRecord
}

// Len returns the number of member connections.
func (r *Room) Len() int {
	return len(r.members)
}

// Member returns the member bound to connID.
func (r *Room) Member(connID string) (*Member, bool) {
	m, ok := r.members[connID]
	return m, ok
}

// Members returns the members in join order.
func (r *Room) Members() []*Member {
	out := make([]*Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].slot < out[j].slot })
	return out
}

// ConnIDs returns member connection ids in join order, skipping exclude.
func (r *Room) ConnIDs(exclude string) []string {
	members := r.Members()
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m.ConnID != exclude {
			out = append(out, m.ConnID)
		}
	}
	return out
}

// ConnIDsForUser returns every member connection carrying userID.
func (r *Room) ConnIDsForUser(userID string) []string {
	var out []string
	for _, m := range r.Members() {
		if m.Identity.ID == userID {
			out = append(out, m.ConnID)
		}
	}
	return out
}

// History returns the room chat history.
func (r *Room) History() *History {
	return r.history
}

// Document returns a shared document by id.
func (r *Room) Document(id string) (*domain.DocumentRecord, bool) {
	d, ok := r.documents[id]
	return d, ok
}

// PutDocument stores or replaces a shared document.
func (r *Room) PutDocument(doc *domain.DocumentRecord) {
	r.documents[doc.ID] = doc
}

// Documents returns the shared documents ordered by share time.
func (r *Room) Documents() []domain.DocumentRecord {
	out := make([]domain.DocumentRecord, 0, len(r.documents))
	for _, d := range r.documents {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SharedAt.Equal(out[j].SharedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SharedAt.Before(out[j].SharedAt)
	})
	return out
}

// View returns the wire representation of a member.
func (r *Room) View(m *Member) domain.MemberView {
	return domain.MemberView{
		ID:           m.Identity.ID,
		Name:         m.Identity.Name,
		SocketID:     m.ConnID,
		JoinedAt:     m.Identity.JoinedAt,
		IsOnline:     true,
		IsRoomLeader: m.ConnID == r.LeaderID,
	}
}

// Views returns every member view in join order.
func (r *Room) Views() []domain.MemberView {
	members := r.Members()
	out := make([]domain.MemberView, 0, len(members))
	for _, m := range members {
		out = append(out, r.View(m))
	}
	return out
}

// RemovalOutcome reports the effect of removing a member.
type RemovalOutcome struct {
	MemberRemoved bool
	RoomDeleted   bool
	NewLeaderID   string
	NewLeaderName string
	Removed       *Member
}

// Store holds every live room. It is not safe for concurrent use; the Engine
// goroutine is its only caller.
type Store struct {
	rooms       map[string]*Room
	nextSlot    uint64
	historySize int
	now         func() time.Time
}

// NewStore creates an empty store whose rooms keep historySize chat messages.
func NewStore(historySize int) *Store {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Store{
		rooms:       make(map[string]*Room),
		historySize: historySize,
		now:         time.Now,
	}
}

// Get returns the room with id.
func (s *Store) Get(roomID string) (*Room, bool) {
	r, ok := s.rooms[roomID]
	return r, ok
}

// GetOrCreate returns the room with id, creating it with creatorConnID as
// leader when allowCreate is set. The second result reports creation.
func (s *Store) GetOrCreate(roomID, creatorConnID string, creator domain.UserIdentity, allowCreate bool) (*Room, bool, error) {
	if r, ok := s.rooms[roomID]; ok {
		return r, false, nil
	}
	if !allowCreate {
		return nil, false, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}

	r := &Room{
		ID:        roomID,
		LeaderID:  creatorConnID,
		CreatedAt: s.now(),
		members:   make(map[string]*Member),
		history:   NewHistory(s.historySize),
		documents: make(map[string]*domain.DocumentRecord),
	}
	s.rooms[roomID] = r
	return r, true, nil
}

// AddMember upserts the membership of connID. The first member's name becomes
// the leader name.
func (s *Store) AddMember(r *Room, connID string, identity domain.UserIdentity) *Member {
	if m, ok := r.members[connID]; ok {
		m.Identity = identity
		if r.LeaderID == connID {
			r.LeaderName = identity.Name
		}
		return m
	}

	s.nextSlot++
	m := &Member{ConnID: connID, Identity: identity, slot: s.nextSlot}
	r.members[connID] = m
	if len(r.members) == 1 {
		if r.LeaderID == "" {
			r.LeaderID = connID
		}
		r.LeaderName = identity.Name
	}
	return m
}

// ReplaceConnection moves the member bound to oldConnID over to newConnID,
// keeping its slot and leadership.
func (s *Store) ReplaceConnection(r *Room, oldConnID, newConnID string, identity domain.UserIdentity) (*Member, bool) {
	old, ok := r.members[oldConnID]
	if !ok {
		return nil, false
	}
	delete(r.members, oldConnID)

	m := &Member{ConnID: newConnID, Identity: identity, slot: old.slot}
	r.members[newConnID] = m
	if r.LeaderID == oldConnID {
		r.LeaderID = newConnID
		r.LeaderName = identity.Name
	}
	return m, true
}

// RemoveMember deletes connID from the room. When the leader leaves the
// earliest-joined remaining member takes over; an empty room is deleted.
func (s *Store) RemoveMember(r *Room, connID string) RemovalOutcome {
	m, ok := r.members[connID]
	if !ok {
		return RemovalOutcome{}
	}
	delete(r.members, connID)
	out := RemovalOutcome{MemberRemoved: true, Removed: m}

	if len(r.members) == 0 {
		r.LeaderID = ""
		delete(s.rooms, r.ID)
		out.RoomDeleted = true
		return out
	}

	if r.LeaderID == connID {
		next := r.Members()[0]
		r.LeaderID = next.ConnID
		r.LeaderName = next.Identity.Name
		out.NewLeaderID = next.ConnID
		out.NewLeaderName = next.Identity.Name
	}
	return out
}

// Exists reports whether a room with id is live.
func (s *Store) Exists(roomID string) bool {
	_, ok := s.rooms[roomID]
	return ok
}

// Len returns the number of live rooms.
func (s *Store) Len() int {
	return len(s.rooms)
}

// ListSummaries returns a summary of every live room, oldest first.
func (s *Store) ListSummaries() []domain.RoomSummary {
	out := make([]domain.RoomSummary, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, summarize(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func summarize(r *Room) domain.RoomSummary {
	members := r.Members()
	users := make([]string, 0, len(members))
	for _, m := range members {
		users = append(users, m.Identity.Name)
	}
	return domain.RoomSummary{
		ID:         r.ID,
		Name:       r.ID,
		LeaderName: r.LeaderName,
		UserCount:  len(members),
		CreatedAt:  r.CreatedAt,
		Users:      users,
	}
}
