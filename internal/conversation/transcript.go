package conversation

import (
	"slices"
	"sync"

	"github.com/img-edit-agent/studio/internal/models"
)

// Transcript is the append-only message log of a session
type Transcript struct {
	mu       sync.RWMutex
	messages []models.Message
}

// NewTranscript creates an empty transcript
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds msg to the end of the transcript
func (t *Transcript) Append(msg models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
}

// List returns a snapshot of all messages in append order
func (t *Transcript) List() []models.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.messages)
}

// Len returns the number of messages
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Count returns the number of messages sent by sender
func (t *Transcript) Count(sender models.Sender) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, m := range t.messages {
		if m.Sender == sender {
			n++
		}
	}
	return n
}
