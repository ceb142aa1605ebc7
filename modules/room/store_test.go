package room

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	domain "github.com/example/collab-room-server/domain/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(id, name string) domain.UserIdentity {
	return domain.UserIdentity{ID: id, Name: name, JoinedAt: time.Now()}
}

func TestStore_GetOrCreate(t *testing.T) {
	tests := []struct {
		name        string
		existing    bool
		allowCreate bool
		wantCreated bool
		wantErr     error
	}{
		{name: "absent room without create", allowCreate: false, wantErr: ErrRoomNotFound},
		{name: "absent room with create", allowCreate: true, wantCreated: true},
		{name: "existing room without create", existing: true, allowCreate: false},
		{name: "existing room with create", existing: true, allowCreate: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(DefaultHistorySize)
			if tt.existing {
				r, _, err := s.GetOrCreate("room-1", "owner", identity("u0", "Owner"), true)
				require.NoError(t, err)
				s.AddMember(r, "owner", identity("u0", "Owner"))
			}

			r, created, err := s.GetOrCreate("room-1", "conn-1", identity("u1", "Alice"), tt.allowCreate)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.Nil(t, r)
				assert.Zero(t, s.Len(), "failed lookup must not mutate the store")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCreated, created)
			if created {
				assert.Equal(t, "conn-1", r.LeaderID)
			} else {
				assert.Equal(t, "owner", r.LeaderID)
			}
		})
	}
}

func TestStore_AddMemberRecordsLeaderName(t *testing.T) {
	s := NewStore(DefaultHistorySize)
	r, _, err := s.GetOrCreate("room-1", "conn-1", identity("u1", "Alice"), true)
	require.NoError(t, err)

	s.AddMember(r, "conn-1", identity("u1", "Alice"))
	s.AddMember(r, "conn-2", identity("u2", "Bob"))

	assert.Equal(t, "Alice", r.LeaderName)
	assert.Equal(t, 2, r.Len())

	// upsert keeps a single entry per connection
	s.AddMember(r, "conn-2", identity("u2", "Bobby"))
	assert.Equal(t, 2, r.Len())
	m, ok := r.Member("conn-2")
	require.True(t, ok)
	assert.Equal(t, "Bobby", m.Identity.Name)
}

func TestStore_RemoveMember(t *testing.T) {
	s := NewStore(DefaultHistorySize)
	r, _, err := s.GetOrCreate("room-1", "conn-1", identity("u1", "Alice"), true)
	require.NoError(t, err)
	s.AddMember(r, "conn-1", identity("u1", "Alice"))
	s.AddMember(r, "conn-2", identity("u2", "Bob"))
	s.AddMember(r, "conn-3", identity("u3", "Carol"))

	t.Run("non-leader leaves", func(t *testing.T) {
		out := s.RemoveMember(r, "conn-3")
		assert.True(t, out.MemberRemoved)
		assert.False(t, out.RoomDeleted)
		assert.Empty(t, out.NewLeaderID)
		assert.Equal(t, "conn-1", r.LeaderID)
	})

	t.Run("unknown connection", func(t *testing.T) {
		out := s.RemoveMember(r, "conn-9")
		assert.False(t, out.MemberRemoved)
	})

	t.Run("leader leaves", func(t *testing.T) {
		out := s.RemoveMember(r, "conn-1")
		assert.True(t, out.MemberRemoved)
		assert.Equal(t, "conn-2", out.NewLeaderID)
		assert.Equal(t, "Bob", out.NewLeaderName)
		assert.Equal(t, "conn-2", r.LeaderID)
		assert.Equal(t, "Bob", r.LeaderName)
	})

	t.Run("last member leaves", func(t *testing.T) {
		out := s.RemoveMember(r, "conn-2")
		assert.True(t, out.RoomDeleted)
		assert.False(t, s.Exists("room-1"))
		assert.Empty(t, s.ListSummaries())
	})
}

func TestStore_ElectsEarliestJoined(t *testing.T) {
	s := NewStore(DefaultHistorySize)
	r, _, _ := s.GetOrCreate("room-1", "c1", identity("u1", "A"), true)
	for i := 1; i <= 4; i++ {
		s.AddMember(r, fmt.Sprintf("c%d", i), identity(fmt.Sprintf("u%d", i), fmt.Sprintf("U%d", i)))
	}

	// c3 leaving does not disturb leadership
	assert.Empty(t, s.RemoveMember(r, "c3").NewLeaderID)
	assert.Equal(t, "c2", s.RemoveMember(r, "c1").NewLeaderID)
	assert.Equal(t, "c4", s.RemoveMember(r, "c2").NewLeaderID)
}

func TestStore_ReplaceConnectionKeepsSlotAndLeadership(t *testing.T) {
	s := NewStore(DefaultHistorySize)
	r, _, _ := s.GetOrCreate("room-1", "c1", identity("u1", "A"), true)
	s.AddMember(r, "c1", identity("u1", "A"))
	s.AddMember(r, "c2", identity("u2", "B"))

	m, ok := s.ReplaceConnection(r, "c1", "c3", identity("u1", "A"))
	require.True(t, ok)
	assert.Equal(t, "c3", m.ConnID)
	assert.Equal(t, "c3", r.LeaderID)
	assert.Equal(t, []string{"c3", "c2"}, r.ConnIDs(""))

	_, ok = s.ReplaceConnection(r, "missing", "c4", identity("u9", "Z"))
	assert.False(t, ok)
}

func TestStore_ListSummaries(t *testing.T) {
	s := NewStore(DefaultHistorySize)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	second, _, _ := s.GetOrCreate("beta", "c1", identity("u1", "Alice"), true)
	s.AddMember(second, "c1", identity("u1", "Alice"))
	s.AddMember(second, "c2", identity("u2", "Bob"))
	third, _, _ := s.GetOrCreate("gamma", "c3", identity("u3", "Carol"), true)
	s.AddMember(third, "c3", identity("u3", "Carol"))

	summaries := s.ListSummaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, domain.RoomSummary{
		ID:         "beta",
		Name:       "beta",
		LeaderName: "Alice",
		UserCount:  2,
		CreatedAt:  base.Add(time.Minute),
		Users:      []string{"Alice", "Bob"},
	}, summaries[0])
	assert.Equal(t, "gamma", summaries[1].ID)
}

// Random join/leave sequences must never leave a room whose leader is not a member.
func TestStore_LeaderAlwaysMember(t *testing.T) {
	r := newTestRouter()
	rng := rand.New(rand.NewSource(7))

	var conns []string
	for i := 0; i < 12; i++ {
		conns = append(conns, connect(r))
	}
	rooms := []string{"r1", "r2", "r3"}

	for step := 0; step < 500; step++ {
		conn := conns[rng.Intn(len(conns))]
		roomID := rooms[rng.Intn(len(rooms))]
		switch rng.Intn(3) {
		case 0:
			joinRoom(t, r, conn, roomID, fmt.Sprintf("user-%d", rng.Intn(8)), "U", rng.Intn(2) == 0)
		case 1:
			r.Dispatch(conn, EventLeaveRoom, mustJSON(t, LeaveRequest{RoomID: roomID}))
		default:
			r.Disconnect(conn)
			conns = append(conns, connect(r))
		}
		requireLeaderInvariant(t, r.Store())
	}
}
