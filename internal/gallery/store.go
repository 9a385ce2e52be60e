// Package gallery holds the ordered collection of image items shown to the user.
//
// The store is append-only: items keep their insertion position forever and
// the only mutation after insertion is UpdateURL, which swaps a provisional
// reference for a durable one.
package gallery

import (
	"errors"
	"fmt"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/img-edit-agent/studio/internal/models"
)

var (
	// ErrDuplicateID indicates an append with an id already in the store
	ErrDuplicateID = errors.New("duplicate image id")
	// ErrNotFound indicates the requested image does not exist
	ErrNotFound = errors.New("image not found")
	// ErrInvalidItem indicates an item that cannot be stored
	ErrInvalidItem = errors.New("invalid image item")
)

// Store is a thread-safe, insertion-ordered collection of image items
type Store struct {
	mu    sync.RWMutex
	items *orderedmap.OrderedMap[string, models.ImageItem]
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		items: orderedmap.New[string, models.ImageItem](),
	}
}

// Append adds item at the end of the collection
func (s *Store) Append(item models.ImageItem) error {
	if item.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidItem)
	}
	if !item.Provenance.Valid() {
		return fmt.Errorf("%w: unknown provenance %q", ErrInvalidItem, item.Provenance)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items.Get(item.ID); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, item.ID)
	}
	s.items.Set(item.ID, item)
	return nil
}

// UpdateURL replaces the url of an existing item, keeping every other field and its position
func (s *Store) UpdateURL(id, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items.Get(id)
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	item.URL = url
	// Set on an existing key keeps its position
	s.items.Set(id, item)
	return nil
}

// Get returns the item with the given id
func (s *Store) Get(id string) (models.ImageItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.Get(id)
}

// Contains reports whether id is in the store
func (s *Store) Contains(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// Len returns the number of items
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.Len()
}

// List returns a snapshot of all items in insertion order
func (s *Store) List() []models.ImageItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.ImageItem, 0, s.items.Len())
	for _, item := range s.items.FromOldest() {
		list = append(list, item)
	}
	return list
}

// Resolve maps ids to their items, preserving the order of ids and skipping unknown ones
func (s *Store) Resolve(ids []string) []models.ImageItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.ImageItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := s.items.Get(id); ok {
			items = append(items, item)
		}
	}
	return items
}
