// Package upload turns a freshly selected local file into a gallery item
// without waiting for object storage.
//
// BeginUpload inserts the item immediately with a transient local reference
// as its url and auto-selects it. A background goroutine then stores the
// bytes durably; on success the url is swapped for the durable one and the
// transient handle is released, on failure the preview stays and the handle
// is released after a grace period.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/img-edit-agent/studio/internal/gallery"
	"github.com/img-edit-agent/studio/internal/models"
	"github.com/img-edit-agent/studio/internal/resource"
	"github.com/img-edit-agent/studio/internal/selection"
)

const (
	// DefaultGracePeriod is how long a failed upload keeps its local preview alive
	DefaultGracePeriod = 60 * time.Second
	// MaxFileSize is the largest accepted upload (10MB)
	MaxFileSize = 10 * 1024 * 1024
	// Description is attached to every uploaded item
	Description = "Uploaded by You"
)

var (
	// ErrEmptyFile indicates an upload without content
	ErrEmptyFile = errors.New("empty file")
	// ErrFileTooLarge indicates an upload above MaxFileSize
	ErrFileTooLarge = errors.New("file too large (max 10MB)")
)

// Uploader stores image bytes durably under imageID
type Uploader interface {
	UploadImage(ctx context.Context, file models.File, imageID string) models.UploadResult
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithGracePeriod overrides DefaultGracePeriod
func WithGracePeriod(d time.Duration) Option {
	return func(r *Reconciler) {
		r.grace = d
	}
}

// WithClock overrides time.Now for item timestamps
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// WithIDGenerator overrides uuid generation for item ids
func WithIDGenerator(newID func() string) Option {
	return func(r *Reconciler) {
		r.newID = newID
	}
}

// WithLogger sets the logger used for reconciliation diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		r.log = l
	}
}

// Reconciler drives optimistic insert → background upload → url swap → release
// for every uploaded image. Uploads run in parallel, each keyed by its own id.
type Reconciler struct {
	store     *gallery.Store
	selection *selection.Set
	resources *resource.Registry
	uploader  Uploader

	grace time.Duration
	now   func() time.Time
	newID func() string
	log   *slog.Logger

	wg        sync.WaitGroup
	mu        sync.Mutex
	inflight  map[string]*resource.Handle
	scheduled map[string]*resource.ScheduledRelease
	closed    bool
}

// New creates a reconciler writing into store and selection
func New(store *gallery.Store, sel *selection.Set, resources *resource.Registry, uploader Uploader, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:     store,
		selection: sel,
		resources: resources,
		uploader:  uploader,
		grace:     DefaultGracePeriod,
		now:       time.Now,
		newID:     uuid.NewString,
		log:       slog.Default(),
		inflight:  make(map[string]*resource.Handle),
		scheduled: make(map[string]*resource.ScheduledRelease),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Title derives a display title from a file name by stripping its extension
func Title(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BeginUpload inserts file into the gallery right away and starts storing it in the background.
// The returned item carries the transient local reference as its url.
func (r *Reconciler) BeginUpload(ctx context.Context, file models.File) (models.ImageItem, error) {
	if len(file.Data) == 0 {
		return models.ImageItem{}, ErrEmptyFile
	}
	if len(file.Data) > MaxFileSize {
		return models.ImageItem{}, ErrFileTooLarge
	}

	id := r.newID()
	handle := r.resources.Create(file.Data, file.ContentType)

	item := models.ImageItem{
		ID:          id,
		URL:         handle.Ref(),
		Title:       Title(file.Name),
		Description: Description,
		CreatedAt:   r.now(),
		Provenance:  models.ProvenanceUploaded,
	}
	if err := r.store.Append(item); err != nil {
		handle.Release()
		return models.ImageItem{}, fmt.Errorf("failed to insert uploaded image: %w", err)
	}
	r.selection.Add(id)

	r.mu.Lock()
	r.inflight[id] = handle
	r.mu.Unlock()

	r.log.Info("Image upload started", "image_id", id, "filename", file.Name, "size", len(file.Data))

	r.wg.Add(1)
	go r.reconcile(context.WithoutCancel(ctx), file, id, handle)

	return item, nil
}

func (r *Reconciler) reconcile(ctx context.Context, file models.File, id string, handle *resource.Handle) {
	defer r.wg.Done()

	result := r.uploader.UploadImage(ctx, file, id)

	r.mu.Lock()
	delete(r.inflight, id)
	r.mu.Unlock()

	if !result.Success || result.URL == "" {
		reason := result.Error
		if reason == "" {
			reason = "no url returned"
		}
		r.log.Warn("Image upload failed, keeping local preview", "image_id", id, "error", reason, "grace", r.grace)
		r.scheduleRelease(id, handle)
		return
	}

	if err := r.store.UpdateURL(id, result.URL); err != nil {
		r.log.Error("Failed to reconcile uploaded image", "image_id", id, "error", err)
		r.scheduleRelease(id, handle)
		return
	}
	handle.Release()

	r.log.Info("Image upload reconciled", "image_id", id)
}

func (r *Reconciler) scheduleRelease(id string, handle *resource.Handle) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		handle.Release()
		return
	}
	s := resource.ScheduleRelease(handle, r.grace)
	r.scheduled[id] = s
	r.mu.Unlock()

	go func() {
		<-s.Done()
		r.mu.Lock()
		delete(r.scheduled, id)
		r.mu.Unlock()
	}()
}

// Pending returns the number of uploads still waiting for object storage
func (r *Reconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// AwaitingRelease returns the number of failed uploads whose preview is still inside the grace period
func (r *Reconciler) AwaitingRelease() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scheduled)
}

// Wait blocks until every started upload has been reconciled
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// Close releases every handle still inside its grace period.
// Uploads that finish after Close release their handle immediately.
func (r *Reconciler) Close() {
	r.mu.Lock()
	r.closed = true
	pending := make([]*resource.ScheduledRelease, 0, len(r.scheduled))
	for _, s := range r.scheduled {
		pending = append(pending, s)
	}
	r.mu.Unlock()

	for _, s := range pending {
		s.ReleaseNow()
	}
}
