// Package resource manages transient local references to binary data.
//
// A Handle plays the role of a browser object URL: it exposes in-memory
// bytes behind a short-lived "blob:" reference that must be released
// explicitly. Once released, the reference no longer resolves.
package resource

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RefPrefix marks a transient local reference
const RefPrefix = "blob:"

var (
	// ErrReleased indicates the handle behind a reference has been released
	ErrReleased = errors.New("resource released")
	// ErrUnknownRef indicates the reference was never issued by this registry
	ErrUnknownRef = errors.New("unknown resource reference")
)

// IsLocalRef reports whether ref is a transient local reference rather than a durable URL
func IsLocalRef(ref string) bool {
	return strings.HasPrefix(ref, RefPrefix)
}

// Registry issues handles and resolves their references.
// Released references are remembered so that lookups report ErrReleased
// instead of ErrUnknownRef.
type Registry struct {
	mu       sync.RWMutex
	handles  map[string]*Handle
	released map[string]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		handles:  make(map[string]*Handle),
		released: make(map[string]struct{}),
	}
}

// Create copies data into a new handle and registers its reference
func (r *Registry) Create(data []byte, contentType string) *Handle {
	buf := make([]byte, len(data))
	copy(buf, data)

	h := &Handle{
		ref:         RefPrefix + uuid.NewString(),
		data:        buf,
		contentType: contentType,
		registry:    r,
	}

	r.mu.Lock()
	r.handles[h.ref] = h
	r.mu.Unlock()

	return h
}

// Open returns a copy of the bytes behind ref
func (r *Registry) Open(ref string) ([]byte, string, error) {
	r.mu.RLock()
	h, ok := r.handles[ref]
	_, gone := r.released[ref]
	r.mu.RUnlock()

	if gone {
		return nil, "", ErrReleased
	}
	if !ok {
		return nil, "", ErrUnknownRef
	}
	return h.Open()
}

// Live returns the number of unreleased handles
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

func (r *Registry) forget(ref string) {
	r.mu.Lock()
	delete(r.handles, ref)
	r.released[ref] = struct{}{}
	r.mu.Unlock()
}

// Handle owns transient bytes until Release is called
type Handle struct {
	ref         string
	contentType string
	registry    *Registry

	mu       sync.RWMutex
	data     []byte
	released bool
}

// Ref returns the transient local reference
func (h *Handle) Ref() string {
	return h.ref
}

// Open returns a copy of the bytes, or ErrReleased
func (h *Handle) Open() ([]byte, string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.released {
		return nil, "", ErrReleased
	}
	data := make([]byte, len(h.data))
	copy(data, h.data)
	return data, h.contentType, nil
}

// Released reports whether Release has been called
func (h *Handle) Released() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.released
}

// Release drops the bytes and invalidates the reference.
// It returns false if the handle was already released.
func (h *Handle) Release() bool {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return false
	}
	h.released = true
	h.data = nil
	h.mu.Unlock()

	if h.registry != nil {
		h.registry.forget(h.ref)
	}
	return true
}

// ScheduledRelease is a one-shot delayed Release that can be cancelled or
// brought forward.
type ScheduledRelease struct {
	handle *Handle
	timer  *time.Timer
	once   sync.Once
	done   chan struct{}
}

// ScheduleRelease releases h after delay unless the schedule is stopped first
func ScheduleRelease(h *Handle, delay time.Duration) *ScheduledRelease {
	s := &ScheduledRelease{
		handle: h,
		done:   make(chan struct{}),
	}
	s.timer = time.AfterFunc(delay, s.fire)
	return s
}

func (s *ScheduledRelease) fire() {
	s.handle.Release()
	s.finish()
}

func (s *ScheduledRelease) finish() {
	s.once.Do(func() { close(s.done) })
}

// Stop cancels the pending release without releasing the handle.
// It returns false if the release already ran.
func (s *ScheduledRelease) Stop() bool {
	if !s.timer.Stop() {
		return false
	}
	s.finish()
	return true
}

// ReleaseNow cancels the timer and releases the handle immediately
func (s *ScheduledRelease) ReleaseNow() {
	s.timer.Stop()
	s.fire()
}

// Done is closed once the schedule has either released the handle or been stopped
func (s *ScheduledRelease) Done() <-chan struct{} {
	return s.done
}
