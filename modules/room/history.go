package room

import domain "github.com/example/collab-room-server/domain/room"

// History is a fixed-capacity ring of chat messages with id deduplication.
// The oldest message is evicted once capacity is reached.
type History struct {
	buf   []domain.ChatMessage
	start int
	size  int
	ids   map[string]struct{}
}

// NewHistory creates a history holding at most capacity messages.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{
		buf: make([]domain.ChatMessage, capacity),
		ids: make(map[string]struct{}, capacity),
	}
}

// Append adds msg unless a message with the same id is already held.
// It reports whether the message was appended.
func (h *History) Append(msg domain.ChatMessage) bool {
	if _, dup := h.ids[msg.ID]; dup {
		return false
	}

	if h.size == len(h.buf) {
		evicted := h.buf[h.start]
		delete(h.ids, evicted.ID)
		h.buf[h.start] = msg
		h.start = (h.start + 1) % len(h.buf)
	} else {
		h.buf[(h.start+h.size)%len(h.buf)] = msg
		h.size++
	}
	h.ids[msg.ID] = struct{}{}
	return true
}

// Contains reports whether a message with id is held.
func (h *History) Contains(id string) bool {
	_, ok := h.ids[id]
	return ok
}

// Len returns the number of held messages.
func (h *History) Len() int {
	return h.size
}

// Cap returns the history capacity.
func (h *History) Cap() int {
	return len(h.buf)
}

// Messages returns a copy of the held messages, oldest first.
func (h *History) Messages() []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, h.size)
	for i := 0; i < h.size; i++ {
		out = append(out, h.buf[(h.start+i)%len(h.buf)])
	}
	return out
}
