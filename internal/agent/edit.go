package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/img-edit-agent/studio/internal/gateway"
	"github.com/img-edit-agent/studio/internal/models"
)

// ImageFetcher downloads the bytes behind an image URL
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// EditResponder answers through Responder and, when the message asks for an edit of a
// selected image, publishes a copy of that image to object storage as the generated result.
// Publishing failures are logged and the text reply is returned alone.
type EditResponder struct {
	Responder  Responder
	Fetcher    ImageFetcher
	Objects    gateway.ObjectStore
	PresignTTL time.Duration
	NewID      func() string
	Now        func() time.Time
}

// Respond answers req and attaches the generated image when one was published
func (e EditResponder) Respond(ctx context.Context, req Request) (Reply, error) {
	reply, err := e.Responder.Respond(ctx, req)
	if err != nil {
		return Reply{}, err
	}

	base, ok := editBase(req)
	if !ok {
		return reply, nil
	}

	img, err := e.publish(ctx, req, base)
	if err != nil {
		slog.Warn("Failed to publish generated image", "user_id", req.UserID, "base_id", base.ID, "error", err)
		return reply, nil
	}

	reply.Image = img
	return reply, nil
}

// editBase returns the first selected image with a durable URL when the message asks for an edit
func editBase(req Request) (SelectedImage, bool) {
	if !WantsEdit(req.Message) {
		return SelectedImage{}, false
	}
	for _, img := range req.Images {
		if strings.HasPrefix(img.URL, "http://") || strings.HasPrefix(img.URL, "https://") {
			return img, true
		}
	}
	return SelectedImage{}, false
}

func (e EditResponder) publish(ctx context.Context, req Request, base SelectedImage) (*models.GeneratedImage, error) {
	data, contentType, err := e.Fetcher.Fetch(ctx, base.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch base image: %w", err)
	}

	newID := e.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	ttl := e.PresignTTL
	if ttl <= 0 {
		ttl = gateway.DefaultPresignTTL
	}
	userID := req.UserID
	if userID == "" {
		userID = "default"
	}

	id := newID()
	title := "Generated Image"
	if base.Title != "" {
		title = "Edited " + base.Title
	}
	created := now().UTC().Format(time.RFC3339)
	key := gateway.ObjectKey(userID, id)

	metadata := map[string]string{
		"title":            title,
		"imageId":          id,
		"userId":           userID,
		"uploadedAt":       created,
		"type":             "generated",
		"generationPrompt": req.Message,
	}
	if err := e.Objects.Put(ctx, key, data, contentType, metadata); err != nil {
		return nil, err
	}

	url, err := e.Objects.PresignGet(ctx, key, ttl)
	if err != nil {
		return nil, err
	}

	slog.Info("Generated image published", "user_id", userID, "image_id", id, "base_id", base.ID)

	return &models.GeneratedImage{
		ID:          id,
		URL:         url,
		Title:       title,
		Description: "Generated from prompt: " + req.Message,
		Timestamp:   created,
	}, nil
}
