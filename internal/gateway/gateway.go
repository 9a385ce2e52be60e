// Package gateway is the only place that performs network I/O.
//
// Failures never escape as errors: SendMessage answers with a fallback
// response, UploadImage and FetchBinary answer with a failure record. The
// callers tell success from failure by the shape of the value.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/img-edit-agent/studio/internal/models"
)

// DefaultPresignTTL is how long a durable URL stays valid
const DefaultPresignTTL = 2 * time.Hour

// Options configures a Gateway
type Options struct {
	ChatBaseURL string
	UserID      string
	PresignTTL  time.Duration
	Objects     ObjectStore
	HTTPClient  *http.Client
}

// Gateway talks to the chat endpoint and to object storage
type Gateway struct {
	chat       *ChatClient
	objects    ObjectStore
	fetcher    *Fetcher
	userID     string
	presignTTL time.Duration
	now        func() time.Time
}

// New creates a gateway. A nil Objects store makes every upload fail with ErrBucketNotConfigured.
func New(opts Options) *Gateway {
	objects := opts.Objects
	if objects == nil {
		objects = UnavailableStore{Err: ErrBucketNotConfigured}
	}
	ttl := opts.PresignTTL
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	userID := opts.UserID
	if userID == "" {
		userID = "default"
	}

	fetcher := NewFetcher()
	if opts.HTTPClient != nil {
		fetcher.HTTPClient = opts.HTTPClient
	}

	return &Gateway{
		chat:       NewChatClient(opts.ChatBaseURL, opts.HTTPClient),
		objects:    objects,
		fetcher:    fetcher,
		userID:     userID,
		presignTTL: ttl,
		now:        time.Now,
	}
}

// UserID returns the identity used to scope requests and object keys
func (g *Gateway) UserID() string {
	return g.userID
}

// SendMessage posts a chat request; on any failure it returns models.FallbackChatResponse
func (g *Gateway) SendMessage(ctx context.Context, req models.ChatRequest) models.ChatResponse {
	if req.UserID == "" {
		req.UserID = g.userID
	}

	resp, err := g.chat.Send(ctx, req)
	if err != nil {
		slog.Error("Error sending chat message", "error", err, "selected_images", len(req.SelectedImages))
		return models.FallbackChatResponse()
	}
	if resp.Status == "" {
		resp.Status = models.StatusSuccess
	}
	return resp
}

// UploadImage stores file under users/{userID}/images/{imageID} and returns a presigned URL
func (g *Gateway) UploadImage(ctx context.Context, file models.File, imageID string) models.UploadResult {
	key := ObjectKey(g.userID, imageID)

	contentType := file.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(file.Data)
	}

	metadata := map[string]string{
		"originalName": file.Name,
		"imageId":      imageID,
		"userId":       g.userID,
		"uploadedAt":   g.now().UTC().Format(time.RFC3339),
	}

	if err := g.objects.Put(ctx, key, file.Data, contentType, metadata); err != nil {
		slog.Error("Error uploading to object storage", "key", key, "error", err)
		return models.UploadResult{Success: false, Error: err.Error()}
	}

	url, err := g.objects.PresignGet(ctx, key, g.presignTTL)
	if err != nil {
		slog.Error("Error presigning uploaded image", "key", key, "error", err)
		return models.UploadResult{Success: false, Error: err.Error()}
	}

	return models.UploadResult{Success: true, URL: url}
}

// FetchBinary downloads the content behind an existing URL
func (g *Gateway) FetchBinary(ctx context.Context, url string) models.DownloadResult {
	if url == "" {
		return models.DownloadResult{Success: false, Error: "no url"}
	}

	data, contentType, err := g.fetcher.Fetch(ctx, url)
	if err != nil {
		slog.Warn("Download failed", "url", url, "error", err)
		return models.DownloadResult{Success: false, Error: err.Error()}
	}
	return models.DownloadResult{Success: true, Data: data, ContentType: contentType}
}
