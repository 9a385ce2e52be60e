// Package conversation sequences chat round-trips against the gallery.
//
// Each Send appends the user's message immediately, asks the chat endpoint
// for a reply with the currently selected images attached, then appends the
// reply (or a fixed fallback) and folds any generated image into the gallery.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/img-edit-agent/studio/internal/gallery"
	"github.com/img-edit-agent/studio/internal/models"
	"github.com/img-edit-agent/studio/internal/selection"
	"github.com/img-edit-agent/studio/internal/upload"
)

const (
	// UploadAcknowledgment is the agent reply appended after every chat upload
	UploadAcknowledgment = "Great! I can help you edit that uploaded image. What would you like to do with it?"

	uploadedPrefix = "📷 Uploaded image: "
	notifyPrefix   = "📷 I uploaded an image: "
)

var (
	// ErrEmptyMessage indicates a message that is blank after trimming
	ErrEmptyMessage = errors.New("message is empty")
	// ErrPending indicates another send is still waiting for its reply
	ErrPending = errors.New("a message is already being processed")
)

// Messenger sends a chat request and always answers with a response value
type Messenger interface {
	SendMessage(ctx context.Context, req models.ChatRequest) models.ChatResponse
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithUserID sets the user id attached to every chat request
func WithUserID(id string) Option {
	return func(p *Pipeline) {
		p.userID = id
	}
}

// WithUploadNotifications makes SendImageUpload tell the chat endpoint about the new image
func WithUploadNotifications(enabled bool) Option {
	return func(p *Pipeline) {
		p.notifyUploads = enabled
	}
}

// WithClock overrides time.Now for message and generated image timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithIDGenerator overrides uuid generation for message ids
func WithIDGenerator(newID func() string) Option {
	return func(p *Pipeline) {
		p.newID = newID
	}
}

// WithLogger sets the logger used by the pipeline
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.log = l
	}
}

// SendResult describes what a successful Send appended
type SendResult struct {
	UserMessage  models.Message
	AgentMessage models.Message
	// GeneratedImage is set when the reply added an image to the gallery
	GeneratedImage *models.ImageItem
	// Fallback is true when the chat call failed and the fallback reply was used
	Fallback bool
}

// UploadResult describes what SendImageUpload appended
type UploadResult struct {
	Item         models.ImageItem
	UserMessage  models.Message
	AgentMessage models.Message
}

// Pipeline runs one chat round-trip at a time for a session
type Pipeline struct {
	store      *gallery.Store
	selection  *selection.Set
	transcript *Transcript
	uploads    *upload.Reconciler
	messenger  Messenger

	userID        string
	notifyUploads bool
	now           func() time.Time
	newID         func() string
	log           *slog.Logger

	pending atomic.Bool
}

// New creates a pipeline over the session's state
func New(store *gallery.Store, sel *selection.Set, transcript *Transcript, uploads *upload.Reconciler, messenger Messenger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      store,
		selection:  sel,
		transcript: transcript,
		uploads:    uploads,
		messenger:  messenger,
		now:        time.Now,
		newID:      uuid.NewString,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pending reports whether a Send is waiting for its reply
func (p *Pipeline) Pending() bool {
	return p.pending.Load()
}

// Send appends text as a user message and the chat endpoint's reply as an agent message.
// A failed chat call is not an error: the fallback reply is appended instead.
func (p *Pipeline) Send(ctx context.Context, text string) (*SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !p.pending.CompareAndSwap(false, true) {
		return nil, ErrPending
	}
	defer p.pending.Store(false)

	items := p.store.Resolve(p.selection.Snapshot())
	req := models.ChatRequest{
		Message:        text,
		SelectedImages: items,
		UserID:         p.userID,
	}

	result := &SendResult{
		UserMessage: p.appendMessage(annotate(text, req.SelectedTitles()), models.SenderUser),
	}

	resp := p.messenger.SendMessage(context.WithoutCancel(ctx), req)
	if !resp.OK() {
		p.log.Warn("Chat request failed, using fallback reply", "status", resp.Status)
		result.AgentMessage = p.appendMessage(models.FallbackReply, models.SenderAgent)
		result.Fallback = true
		return result, nil
	}

	result.AgentMessage = p.appendMessage(resp.Response, models.SenderAgent)
	if resp.GeneratedImage != nil && resp.GeneratedImage.URL != "" {
		result.GeneratedImage = p.mergeGenerated(*resp.GeneratedImage)
	}
	return result, nil
}

// SendImageUpload starts an upload and records it in the transcript.
// It returns before the background upload completes.
func (p *Pipeline) SendImageUpload(ctx context.Context, file models.File) (*UploadResult, error) {
	item, err := p.uploads.BeginUpload(ctx, file)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{
		Item:        item,
		UserMessage: p.appendMessage(uploadedPrefix+item.Title, models.SenderUser),
	}

	if p.notifyUploads {
		resp := p.messenger.SendMessage(context.WithoutCancel(ctx), models.ChatRequest{
			Message:        notifyPrefix + item.Title,
			SelectedImages: []models.ImageItem{item},
			UserID:         p.userID,
		})
		p.log.Debug("Upload notification answered", "image_id", item.ID, "status", resp.Status, "ok", resp.OK())
	}

	result.AgentMessage = p.appendMessage(UploadAcknowledgment, models.SenderAgent)
	return result, nil
}

func (p *Pipeline) mergeGenerated(img models.GeneratedImage) *models.ImageItem {
	id := img.ID
	if id == "" {
		id = p.newID()
	}

	createdAt, ok := parseTimestamp(img.Timestamp)
	if !ok {
		createdAt = p.now()
	}

	item := models.ImageItem{
		ID:          id,
		URL:         img.URL,
		Title:       img.Title,
		Description: img.Description,
		CreatedAt:   createdAt,
		Provenance:  models.ProvenanceGenerated,
	}

	if err := p.store.Append(item); err != nil {
		if errors.Is(err, gallery.ErrDuplicateID) {
			p.log.Warn("Ignoring generated image with duplicate id", "image_id", id)
		} else {
			p.log.Error("Failed to add generated image", "image_id", id, "error", err)
		}
		return nil
	}

	p.log.Info("Generated image added", "image_id", id, "title", item.Title)
	return &item
}

// isoLocalLayout matches ISO 8601 timestamps without a zone, read as UTC
const isoLocalLayout = "2006-01-02T15:04:05.999999999"

func parseTimestamp(v string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(isoLocalLayout, v, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (p *Pipeline) appendMessage(content string, sender models.Sender) models.Message {
	msg := models.Message{
		ID:        p.newID(),
		Content:   content,
		Sender:    sender,
		Timestamp: p.now(),
	}
	p.transcript.Append(msg)
	return msg
}

func annotate(text string, titles []string) string {
	if len(titles) == 0 {
		return text
	}
	return fmt.Sprintf("%s [Selected images: %s]", text, strings.Join(titles, ", "))
}
