package room

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)          {}
func (m *mockLogger) Info(msg string, args ...any)           {}
func (m *mockLogger) Warn(msg string, args ...any)           {}
func (m *mockLogger) Error(msg string, args ...any)          {}
func (m *mockLogger) With(args ...any) types.Logger          { return m }
func (m *mockLogger) WithError(err error) types.Logger       { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

// newTestRouter returns a router whose connection ids are conn-1, conn-2, ...
func newTestRouter() *Router {
	r := NewRouter(NewStore(DefaultHistorySize), &mockLogger{})
	n := 0
	r.registry.newID = func() string {
		n++
		return fmt.Sprintf("conn-%d", n)
	}
	return r
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func connect(r *Router) string {
	id, _ := r.Connect()
	return id
}

func joinRoom(t *testing.T, r *Router, connID, roomID, userID, name string, creating bool) Outcome {
	t.Helper()
	return r.Dispatch(connID, EventJoinRoom, mustJSON(t, JoinRequest{
		RoomID:     roomID,
		UserData:   &UserData{ID: userID, Name: name},
		IsCreating: creating,
	}))
}

func effectsFor(out Outcome, event string) []Effect {
	var found []Effect
	for _, e := range out.Effects {
		if e.Event == event {
			found = append(found, e)
		}
	}
	return found
}

func indexOf(out Outcome, event string) int {
	for i, e := range out.Effects {
		if e.Event == event {
			return i
		}
	}
	return -1
}

// requireLeaderInvariant checks every live room has members and a leader among them.
func requireLeaderInvariant(t *testing.T, s *Store) {
	t.Helper()
	for id, r := range s.rooms {
		require.NotZero(t, r.Len(), "room %s is empty but still stored", id)
		_, ok := r.Member(r.LeaderID)
		require.True(t, ok, "room %s leader %q is not a member", id, r.LeaderID)
		require.LessOrEqual(t, r.History().Len(), DefaultHistorySize)
	}
}
