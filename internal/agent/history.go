package agent

import (
	"slices"
	"sync"

	"github.com/img-edit-agent/studio/internal/providers"
)

// DefaultHistoryTurns is how many exchanges are kept per user
const DefaultHistoryTurns = 20

// History keeps each user's recent exchanges in memory
type History struct {
	mu       sync.Mutex
	maxTurns int
	byUser   map[string][]providers.Message
}

// NewHistory keeps at most maxTurns exchanges per user; maxTurns <= 0 uses DefaultHistoryTurns
func NewHistory(maxTurns int) *History {
	if maxTurns <= 0 {
		maxTurns = DefaultHistoryTurns
	}
	return &History{
		maxTurns: maxTurns,
		byUser:   make(map[string][]providers.Message),
	}
}

// Messages returns a copy of the user's earlier turns, oldest first
func (h *History) Messages(userID string) []providers.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.byUser[userID])
}

// Record appends one exchange, dropping the oldest ones past the limit
func (h *History) Record(userID, prompt, reply string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	msgs := append(h.byUser[userID],
		providers.Message{Role: providers.RoleUser, Content: prompt},
		providers.Message{Role: providers.RoleAssistant, Content: reply},
	)
	if excess := len(msgs) - 2*h.maxTurns; excess > 0 {
		msgs = slices.Clone(msgs[excess:])
	}
	h.byUser[userID] = msgs
}
