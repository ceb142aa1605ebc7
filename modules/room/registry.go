package room

import (
	"fmt"
	"time"

	domain "github.com/example/collab-room-server/domain/room"
	"github.com/google/uuid"
)

// connection is the registry's record of one live transport link.
type connection struct {
	id          string
	connectedAt time.Time
	rooms       []string
	identities  map[string]domain.UserIdentity
}

func (c *connection) bind(roomID string, identity domain.UserIdentity) {
	if _, ok := c.identities[roomID]; !ok {
		c.rooms = append(c.rooms, roomID)
	}
	c.identities[roomID] = identity
}

func (c *connection) unbind(roomID string) bool {
	if _, ok := c.identities[roomID]; !ok {
		return false
	}
	delete(c.identities, roomID)
	for i, id := range c.rooms {
		if id == roomID {
			c.rooms = append(c.rooms[:i], c.rooms[i+1:]...)
			break
		}
	}
	return true
}

// Registry binds live connections to the rooms and identities they joined.
type Registry struct {
	conns       map[string]*connection
	coordinator *Coordinator
	now         func() time.Time
	newID       func() string
}

// NewRegistry creates a registry delegating presence changes to coordinator.
func NewRegistry(coordinator *Coordinator) *Registry {
	return &Registry{
		conns:       make(map[string]*connection),
		coordinator: coordinator,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// OnConnect allocates a fresh connection id.
func (r *Registry) OnConnect() string {
	id := r.newID()
	r.conns[id] = &connection{
		id:          id,
		connectedAt: r.now(),
		identities:  make(map[string]domain.UserIdentity),
	}
	return id
}

// OnJoin joins connID to a room and records the association on success.
func (r *Registry) OnJoin(connID string, req JoinRequest) (JoinResult, error) {
	conn, ok := r.conns[connID]
	if !ok {
		return JoinResult{}, fmt.Errorf("%w: unknown connection %s", ErrInvalidRequest, connID)
	}

	result, err := r.coordinator.Join(connID, req)
	if err != nil {
		return JoinResult{}, err
	}
	conn.bind(result.RoomID, result.Identity)

	if result.ReplacedConnID != "" {
		if old, ok := r.conns[result.ReplacedConnID]; ok {
			old.unbind(result.RoomID)
		}
	}
	return result, nil
}

// OnLeave removes connID from roomID.
func (r *Registry) OnLeave(connID, roomID string) Outcome {
	if conn, ok := r.conns[connID]; ok {
		conn.unbind(roomID)
	}
	return r.coordinator.Leave(connID, roomID)
}

// OnDisconnect leaves every room connID was in and forgets the connection.
// Repeated calls are no-ops. The second result is the number of rooms left.
func (r *Registry) OnDisconnect(connID string) (Outcome, int) {
	var out Outcome

	conn, ok := r.conns[connID]
	if !ok {
		return out, 0
	}
	delete(r.conns, connID)

	rooms := append([]string(nil), conn.rooms...)
	for _, roomID := range rooms {
		out.merge(r.coordinator.Leave(connID, roomID))
	}
	return out, len(rooms)
}

// Identity returns the identity connID presented when joining roomID.
func (r *Registry) Identity(connID, roomID string) (domain.UserIdentity, bool) {
	conn, ok := r.conns[connID]
	if !ok {
		return domain.UserIdentity{}, false
	}
	id, ok := conn.identities[roomID]
	return id, ok
}

// Rooms returns the rooms connID belongs to, in join order.
func (r *Registry) Rooms(connID string) []string {
	conn, ok := r.conns[connID]
	if !ok {
		return nil
	}
	return append([]string(nil), conn.rooms...)
}

// Connected reports whether connID is registered.
func (r *Registry) Connected(connID string) bool {
	_, ok := r.conns[connID]
	return ok
}

// Connections returns every registered connection id.
func (r *Registry) Connections() []string {
	out := make([]string, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	return len(r.conns)
}
