package room

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// UserIdentity is the client-supplied identity of a room participant.
// ID stays stable across reconnects; many connections may carry the same ID.
type UserIdentity struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Sender is the identity snapshot attached to a chat message.
type Sender struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChatMessage is a single entry of a room's bounded chat history.
// Fields a client adds beyond the known ones are kept in Extra and sent
// back unchanged.
type ChatMessage struct {
	ID        string                     `json:"id"`
	Text      string                     `json:"text"`
	Sender    Sender                     `json:"sender"`
	Timestamp time.Time                  `json:"timestamp"`
	Extra     map[string]json.RawMessage `json:"-"`
}

var chatMessageFields = map[string]struct{}{
	"id":        {},
	"text":      {},
	"sender":    {},
	"timestamp": {},
}

// UnmarshalJSON accepts the timestamp as an RFC 3339 string or as epoch
// milliseconds.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var known struct {
		ID     string `json:"id"`
		Text   string `json:"text"`
		Sender Sender `json:"sender"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	ts, err := parseTimestamp(fields["timestamp"])
	if err != nil {
		return err
	}

	*m = ChatMessage{ID: known.ID, Text: known.Text, Sender: known.Sender, Timestamp: ts}
	for k, v := range fields {
		if _, ok := chatMessageFields[k]; ok {
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]json.RawMessage)
		}
		m.Extra[k] = v
	}
	return nil
}

// MarshalJSON writes the known fields over any extra ones.
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	type plain ChatMessage
	base, err := json.Marshal(plain(m))
	if err != nil || len(m.Extra) == 0 {
		return base, err
	}

	var known map[string]json.RawMessage
	if err := json.Unmarshal(base, &known); err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(m.Extra)+len(known))
	for k, v := range m.Extra {
		merged[k] = v
	}
	for k, v := range known {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		if s == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		return t, nil
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %s: %w", raw, err)
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

// DocumentRecord describes a document shared into a room.
type DocumentRecord struct {
	ID             string     `json:"id"`
	Name           string     `json:"name,omitempty"`
	Type           string     `json:"type,omitempty"`
	Size           int64      `json:"size,omitempty"`
	URL            string     `json:"url,omitempty"`
	Content        string     `json:"content,omitempty"`
	SharedAt       time.Time  `json:"sharedAt"`
	SharedBy       string     `json:"sharedBy,omitempty"`
	LastModified   *time.Time `json:"lastModified,omitempty"`
	LastModifiedBy string     `json:"lastModifiedBy,omitempty"`
}

// MemberView is the wire representation of a member in presence notifications.
type MemberView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SocketID     string    `json:"socketId"`
	JoinedAt     time.Time `json:"joinedAt"`
	IsOnline     bool      `json:"isOnline"`
	IsRoomLeader bool      `json:"isRoomLeader"`
}

// RoomSummary is the read-only projection served by the query surface.
type RoomSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	LeaderName string    `json:"leaderName"`
	UserCount  int       `json:"userCount"`
	CreatedAt  time.Time `json:"createdAt"`
	Users      []string  `json:"users"`
}
