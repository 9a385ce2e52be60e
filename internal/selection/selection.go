package selection

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Set tracks the image ids currently in conversation context.
// Snapshots list ids in the order they were selected.
type Set struct {
	mu  sync.RWMutex
	ids *orderedmap.OrderedMap[string, struct{}]
}

// New creates an empty selection
func New() *Set {
	return &Set{
		ids: orderedmap.New[string, struct{}](),
	}
}

// Toggle removes id if selected, adds it otherwise, and reports whether it is selected afterwards
func (s *Set) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, present := s.ids.Delete(id); present {
		return false
	}
	s.ids.Set(id, struct{}{})
	return true
}

// Add selects id; selecting an already selected id is a no-op
func (s *Set) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, present := s.ids.Get(id); !present {
		s.ids.Set(id, struct{}{})
	}
}

// Contains reports whether id is selected
func (s *Set) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, present := s.ids.Get(id)
	return present
}

// Len returns the number of selected ids
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids.Len()
}

// Snapshot returns a copy of the selected ids
func (s *Set) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, s.ids.Len())
	for id := range s.ids.FromOldest() {
		ids = append(ids, id)
	}
	return ids
}

// Clear deselects everything
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = orderedmap.New[string, struct{}]()
}
