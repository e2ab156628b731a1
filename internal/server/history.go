package server

import "github.com/Knighty7-ciper/cmd-chat/internal/types"

// DefaultHistoryLimit is the per-room retention cap.
const DefaultHistoryLimit = 10000

// History is a bounded, append-only message log. Eviction is oldest-first
// and always whole messages. It is owned by its room's registry entry and
// is not safe for concurrent use; the registry serializes access.
type History struct {
	limit    int
	messages []types.Message
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Append adds a message, evicting the oldest entries once the cap is
// exceeded.
func (h *History) Append(msg types.Message) {
	h.messages = append(h.messages, msg)
	if len(h.messages) > h.limit {
		overflow := len(h.messages) - h.limit
		h.messages = append(h.messages[:0:0], h.messages[overflow:]...)
	}
}

// Recent returns a copy of the newest n messages in original order. A
// non-positive n returns everything retained.
func (h *History) Recent(n int) []types.Message {
	if n <= 0 || n > len(h.messages) {
		n = len(h.messages)
	}

	out := make([]types.Message, n)
	copy(out, h.messages[len(h.messages)-n:])
	return out
}

func (h *History) Len() int {
	return len(h.messages)
}
