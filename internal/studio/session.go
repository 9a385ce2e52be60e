// Package studio wires one user's gallery, selection, transcript and uploads
// into a session served by the HTTP API.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/img-edit-agent/studio/internal/conversation"
	"github.com/img-edit-agent/studio/internal/gallery"
	"github.com/img-edit-agent/studio/internal/models"
	"github.com/img-edit-agent/studio/internal/resource"
	"github.com/img-edit-agent/studio/internal/samples"
	"github.com/img-edit-agent/studio/internal/selection"
	"github.com/img-edit-agent/studio/internal/upload"
)

// ErrDownloadFailed indicates the image content could not be retrieved
var ErrDownloadFailed = errors.New("download failed")

// Gateway is everything a session needs from the outside world
type Gateway interface {
	upload.Uploader
	conversation.Messenger
	FetchBinary(ctx context.Context, url string) models.DownloadResult
}

// Options configures a new session
type Options struct {
	UserID        string
	UploadGrace   time.Duration
	NotifyUploads bool
	Samples       []samples.Sample
	Logger        *slog.Logger
}

// Session is one user's studio state
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	Store      *gallery.Store
	Selection  *selection.Set
	Transcript *conversation.Transcript
	Resources  *resource.Registry
	Uploads    *upload.Reconciler
	Pipeline   *conversation.Pipeline

	gateway Gateway
	log     *slog.Logger
}

// Snapshot is a point-in-time copy of a session's visible state
type Snapshot struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Images    []models.ImageItem `json:"images"`
	Selected  []string           `json:"selected"`
	Messages  []models.Message   `json:"messages"`
	Pending   bool               `json:"pending"`
	Uploading int                `json:"uploading"`
}

// Download is image content ready to be saved locally
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// New creates a session seeded with opts.Samples
func New(gw Gateway, opts Options) (*Session, error) {
	id := uuid.NewString()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session_id", id)

	s := &Session{
		ID:         id,
		UserID:     opts.UserID,
		CreatedAt:  time.Now(),
		Store:      gallery.NewStore(),
		Selection:  selection.New(),
		Transcript: conversation.NewTranscript(),
		Resources:  resource.NewRegistry(),
		gateway:    gw,
		log:        logger,
	}

	uploadOpts := []upload.Option{upload.WithLogger(logger)}
	if opts.UploadGrace > 0 {
		uploadOpts = append(uploadOpts, upload.WithGracePeriod(opts.UploadGrace))
	}
	s.Uploads = upload.New(s.Store, s.Selection, s.Resources, gw, uploadOpts...)

	s.Pipeline = conversation.New(s.Store, s.Selection, s.Transcript, s.Uploads, gw,
		conversation.WithUserID(opts.UserID),
		conversation.WithUploadNotifications(opts.NotifyUploads),
		conversation.WithLogger(logger),
	)

	for _, item := range samples.Items(opts.Samples, s.CreatedAt) {
		if err := s.Store.Append(item); err != nil {
			return nil, fmt.Errorf("failed to seed session: %w", err)
		}
	}

	logger.Info("Session created", "samples", len(opts.Samples))
	return s, nil
}

// Send runs one chat round-trip
func (s *Session) Send(ctx context.Context, text string) (*conversation.SendResult, error) {
	return s.Pipeline.Send(ctx, text)
}

// Upload inserts file into the gallery. With chat set the upload is also recorded in the transcript.
func (s *Session) Upload(ctx context.Context, file models.File, chat bool) (models.ImageItem, error) {
	if chat {
		res, err := s.Pipeline.SendImageUpload(ctx, file)
		if err != nil {
			return models.ImageItem{}, err
		}
		return res.Item, nil
	}
	return s.Uploads.BeginUpload(ctx, file)
}

// ToggleSelection flips the selection state of an existing image
func (s *Session) ToggleSelection(imageID string) (bool, error) {
	if !s.Store.Contains(imageID) {
		return false, fmt.Errorf("%w: %s", gallery.ErrNotFound, imageID)
	}
	return s.Selection.Toggle(imageID), nil
}

// ClearSelection deselects everything
func (s *Session) ClearSelection() {
	s.Selection.Clear()
}

// Snapshot returns the current state of the session
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Images:    s.Store.List(),
		Selected:  s.Selection.Snapshot(),
		Messages:  s.Transcript.List(),
		Pending:   s.Pipeline.Pending(),
		Uploading: s.Uploads.Pending(),
	}
}

// Preview returns the transient bytes behind a local reference
func (s *Session) Preview(ref string) ([]byte, string, error) {
	return s.Resources.Open(ref)
}

// Download fetches an image's content for saving it locally
func (s *Session) Download(ctx context.Context, imageID string) (Download, error) {
	item, ok := s.Store.Get(imageID)
	if !ok {
		return Download{}, fmt.Errorf("%w: %s", gallery.ErrNotFound, imageID)
	}

	if resource.IsLocalRef(item.URL) {
		data, contentType, err := s.Resources.Open(item.URL)
		if err != nil {
			return Download{}, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
		}
		return Download{
			Filename:    downloadFilename(item.Title, item.URL, contentType),
			ContentType: contentType,
			Data:        data,
		}, nil
	}

	result := s.gateway.FetchBinary(ctx, item.URL)
	if !result.Success {
		return Download{}, fmt.Errorf("%w: %s", ErrDownloadFailed, result.Error)
	}
	return Download{
		Filename:    downloadFilename(item.Title, item.URL, result.ContentType),
		ContentType: result.ContentType,
		Data:        result.Data,
	}, nil
}

// Close releases every transient resource the session still holds
func (s *Session) Close() {
	s.Uploads.Close()
	s.log.Info("Session closed", "images", s.Store.Len(), "messages", s.Transcript.Len())
}

var extByContentType = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

func downloadFilename(title, rawURL, contentType string) string {
	if title == "" {
		title = "image"
	}

	ext := ""
	if u, err := url.Parse(rawURL); err == nil && !resource.IsLocalRef(rawURL) {
		ext = strings.TrimPrefix(path.Ext(u.Path), ".")
	}
	if ext == "" {
		ct, _, _ := strings.Cut(contentType, ";")
		ext = extByContentType[strings.TrimSpace(ct)]
	}
	if ext == "" {
		ext = "png"
	}
	return title + "." + ext
}
