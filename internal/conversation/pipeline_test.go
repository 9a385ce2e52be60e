package conversation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/img-edit-agent/studio/internal/gallery"
	"github.com/img-edit-agent/studio/internal/models"
	"github.com/img-edit-agent/studio/internal/resource"
	"github.com/img-edit-agent/studio/internal/selection"
	"github.com/img-edit-agent/studio/internal/upload"
)

type fakeMessenger struct {
	mu       sync.Mutex
	requests []models.ChatRequest
	reply    func(req models.ChatRequest) models.ChatResponse
}

func (f *fakeMessenger) SendMessage(_ context.Context, req models.ChatRequest) models.ChatResponse {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	reply := f.reply
	f.mu.Unlock()

	if reply == nil {
		return models.ChatResponse{Response: "ok", Status: models.StatusSuccess}
	}
	return reply(req)
}

func (f *fakeMessenger) Requests() []models.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ChatRequest(nil), f.requests...)
}

type instantUploader struct{}

func (instantUploader) UploadImage(_ context.Context, _ models.File, imageID string) models.UploadResult {
	return models.UploadResult{Success: true, URL: "https://cdn/" + imageID}
}

type fixture struct {
	store      *gallery.Store
	selection  *selection.Set
	transcript *Transcript
	uploads    *upload.Reconciler
	pipeline   *Pipeline
}

func newFixture(t *testing.T, m Messenger, opts ...Option) *fixture {
	t.Helper()

	store := gallery.NewStore()
	sel := selection.New()
	transcript := NewTranscript()
	uploads := upload.New(store, sel, resource.NewRegistry(), instantUploader{})
	t.Cleanup(func() {
		uploads.Wait()
		uploads.Close()
	})

	return &fixture{
		store:      store,
		selection:  sel,
		transcript: transcript,
		uploads:    uploads,
		pipeline:   New(store, sel, transcript, uploads, m, opts...),
	}
}

func sample(id, title string) models.ImageItem {
	return models.ImageItem{
		ID:         id,
		URL:        "https://example.com/" + id + ".png",
		Title:      title,
		CreatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Provenance: models.ProvenanceSample,
	}
}

func TestSendAppendsUserAndAgentMessages(t *testing.T) {
	m := &fakeMessenger{}
	f := newFixture(t, m, WithUserID("u1"))

	result, err := f.pipeline.Send(context.Background(), "  hello  ")
	require.NoError(t, err)

	msgs := f.transcript.List()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.SenderUser, msgs[0].Sender)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, models.SenderAgent, msgs[1].Sender)
	assert.Equal(t, "ok", msgs[1].Content)

	assert.Equal(t, msgs[0], result.UserMessage)
	assert.Equal(t, msgs[1], result.AgentMessage)
	assert.False(t, result.Fallback)
	assert.Nil(t, result.GeneratedImage)
	assert.False(t, f.pipeline.Pending())

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "hello", reqs[0].Message)
	assert.Equal(t, "u1", reqs[0].UserID)
	assert.Empty(t, reqs[0].SelectedImages)
}

func TestSendAttachesSelectedImages(t *testing.T) {
	m := &fakeMessenger{}
	f := newFixture(t, m)

	require.NoError(t, f.store.Append(sample("a", "Seoul Night")))
	require.NoError(t, f.store.Append(sample("b", "NYC")))
	require.NoError(t, f.store.Append(sample("c", "Woman")))
	f.selection.Toggle("c")
	f.selection.Toggle("a")

	_, err := f.pipeline.Send(context.Background(), "make them brighter")
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "make them brighter", reqs[0].Message)
	assert.Equal(t, []string{"Woman", "Seoul Night"}, reqs[0].SelectedTitles())

	msgs := f.transcript.List()
	assert.Equal(t, "make them brighter [Selected images: Woman, Seoul Night]", msgs[0].Content)
}

func TestSendMergesGeneratedImage(t *testing.T) {
	m := &fakeMessenger{
		reply: func(models.ChatRequest) models.ChatResponse {
			return models.ChatResponse{
				Response: "Here you go",
				Status:   models.StatusSuccess,
				GeneratedImage: &models.GeneratedImage{
					ID:          "g1",
					URL:         "https://cdn/g1.png",
					Title:       "Seoul by day",
					Description: "Daytime version",
					Timestamp:   "2025-03-04T05:06:07Z",
				},
			}
		},
	}
	f := newFixture(t, m)
	require.NoError(t, f.store.Append(sample("s1", "Seoul Night")))
	f.selection.Toggle("s1")

	result, err := f.pipeline.Send(context.Background(), "make it daytime")
	require.NoError(t, err)

	require.NotNil(t, result.GeneratedImage)
	assert.Equal(t, "g1", result.GeneratedImage.ID)

	items := f.store.List()
	require.Len(t, items, 2)
	g := items[1]
	assert.Equal(t, "g1", g.ID)
	assert.Equal(t, "https://cdn/g1.png", g.URL)
	assert.Equal(t, "Seoul by day", g.Title)
	assert.Equal(t, "Daytime version", g.Description)
	assert.Equal(t, models.ProvenanceGenerated, g.Provenance)
	assert.Equal(t, time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC), g.CreatedAt.UTC())

	assert.Equal(t, []string{"s1"}, f.selection.Snapshot())
	assert.Equal(t, 2, f.transcript.Len())
}

func TestSendGeneratedImageEdgeCases(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		generated *models.GeneratedImage
		wantItems int
		wantID    string
	}{
		{
			name:      "no url is ignored",
			generated: &models.GeneratedImage{ID: "g1"},
			wantItems: 1,
		},
		{
			name:      "duplicate id is ignored",
			generated: &models.GeneratedImage{ID: "s1", URL: "https://cdn/other.png"},
			wantItems: 1,
		},
		{
			name:      "missing id gets one",
			generated: &models.GeneratedImage{URL: "https://cdn/new.png", Timestamp: "yesterday"},
			wantItems: 2,
			wantID:    "generated-id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMessenger{
				reply: func(models.ChatRequest) models.ChatResponse {
					return models.ChatResponse{Response: "done", Status: models.StatusSuccess, GeneratedImage: tt.generated}
				},
			}
			f := newFixture(t, m,
				WithClock(func() time.Time { return fixed }),
				WithIDGenerator(func() string { return "generated-id" }),
			)
			require.NoError(t, f.store.Append(sample("s1", "Seoul Night")))

			result, err := f.pipeline.Send(context.Background(), "go")
			require.NoError(t, err)

			items := f.store.List()
			require.Len(t, items, tt.wantItems)
			assert.Equal(t, "https://example.com/s1.png", items[0].URL)
			assert.Equal(t, models.ProvenanceSample, items[0].Provenance)

			if tt.wantID == "" {
				assert.Nil(t, result.GeneratedImage)
				return
			}
			require.NotNil(t, result.GeneratedImage)
			assert.Equal(t, tt.wantID, items[1].ID)
			assert.Equal(t, fixed, items[1].CreatedAt)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-03-04T05:06:07Z", time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC), true},
		{"2025-03-04T05:06:07+02:00", time.Date(2025, 3, 4, 3, 6, 7, 0, time.UTC), true},
		{"2025-01-02T03:04:05.123456", time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC), true},
		{"2025-01-02T03:04:05", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseTimestamp(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestSendKeepsZonelessGeneratedTimestamp(t *testing.T) {
	m := &fakeMessenger{
		reply: func(models.ChatRequest) models.ChatResponse {
			return models.ChatResponse{
				Response: "done",
				Status:   models.StatusSuccess,
				GeneratedImage: &models.GeneratedImage{
					ID:        "g1",
					URL:       "https://cdn/g1.png",
					Timestamp: "2025-01-02T03:04:05.123456",
				},
			}
		},
	}
	f := newFixture(t, m, WithClock(func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }))

	result, err := f.pipeline.Send(context.Background(), "paint it")
	require.NoError(t, err)
	require.NotNil(t, result.GeneratedImage)
	assert.True(t, time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC).Equal(result.GeneratedImage.CreatedAt))
}

func TestSendFallbackOnFailure(t *testing.T) {
	m := &fakeMessenger{
		reply: func(models.ChatRequest) models.ChatResponse {
			return models.FallbackChatResponse()
		},
	}
	f := newFixture(t, m)
	require.NoError(t, f.store.Append(sample("s1", "Seoul Night")))

	result, err := f.pipeline.Send(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, result.Fallback)

	msgs := f.transcript.List()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.SenderAgent, msgs[1].Sender)
	assert.Equal(t, models.FallbackReply, msgs[1].Content)
	assert.Equal(t, 1, f.transcript.Count(models.SenderAgent))
	assert.Equal(t, 1, f.store.Len())
	assert.False(t, f.pipeline.Pending())
}

func TestSendTreatsEmptyResponseAsFailure(t *testing.T) {
	m := &fakeMessenger{
		reply: func(models.ChatRequest) models.ChatResponse {
			return models.ChatResponse{Status: models.StatusSuccess}
		},
	}
	f := newFixture(t, m)

	result, err := f.pipeline.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.Equal(t, models.FallbackReply, result.AgentMessage.Content)
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	m := &fakeMessenger{}
	f := newFixture(t, m)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := f.pipeline.Send(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
	assert.Zero(t, f.transcript.Len())
	assert.Empty(t, m.Requests())
}

func TestSendRejectsWhilePending(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	m := &fakeMessenger{
		reply: func(models.ChatRequest) models.ChatResponse {
			close(started)
			<-release
			return models.ChatResponse{Response: "slow", Status: models.StatusSuccess}
		},
	}
	f := newFixture(t, m)

	done := make(chan error, 1)
	go func() {
		_, err := f.pipeline.Send(context.Background(), "first")
		done <- err
	}()

	<-started
	assert.True(t, f.pipeline.Pending())

	_, err := f.pipeline.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrPending)
	assert.Equal(t, 1, f.transcript.Len())

	close(release)
	require.NoError(t, <-done)

	assert.False(t, f.pipeline.Pending())
	msgs := f.transcript.List()
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "slow", msgs[1].Content)
}

func TestSendIgnoresCallerCancellation(t *testing.T) {
	var ctxErr atomic.Value
	m := &fakeMessenger{}
	m.reply = func(models.ChatRequest) models.ChatResponse {
		return models.ChatResponse{Response: "still here", Status: models.StatusSuccess}
	}
	f := newFixture(t, &ctxCheckingMessenger{inner: m, err: &ctxErr})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.pipeline.Send(ctx, "hi")
	require.NoError(t, err)
	assert.False(t, result.Fallback)
	assert.Nil(t, ctxErr.Load())
}

type ctxCheckingMessenger struct {
	inner Messenger
	err   *atomic.Value
}

func (c *ctxCheckingMessenger) SendMessage(ctx context.Context, req models.ChatRequest) models.ChatResponse {
	if err := ctx.Err(); err != nil {
		c.err.Store(err)
	}
	return c.inner.SendMessage(ctx, req)
}

func TestSendImageUpload(t *testing.T) {
	m := &fakeMessenger{}
	f := newFixture(t, m)

	result, err := f.pipeline.SendImageUpload(context.Background(), models.File{
		Name:        "sunset.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("jpeg bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, "sunset", result.Item.Title)
	assert.Equal(t, models.ProvenanceUploaded, result.Item.Provenance)
	assert.True(t, resource.IsLocalRef(result.Item.URL))
	assert.True(t, f.selection.Contains(result.Item.ID))

	msgs := f.transcript.List()
	require.Len(t, msgs, 2)
	assert.Equal(t, "📷 Uploaded image: sunset", msgs[0].Content)
	assert.Equal(t, models.SenderUser, msgs[0].Sender)
	assert.Equal(t, UploadAcknowledgment, msgs[1].Content)
	assert.Equal(t, models.SenderAgent, msgs[1].Sender)

	assert.Empty(t, m.Requests(), "notifications are off by default")

	f.uploads.Wait()
	item, ok := f.store.Get(result.Item.ID)
	require.True(t, ok)
	assert.Equal(t, "https://cdn/"+result.Item.ID, item.URL)
}

func TestSendImageUploadNotifiesWhenEnabled(t *testing.T) {
	m := &fakeMessenger{
		reply: func(models.ChatRequest) models.ChatResponse {
			return models.FallbackChatResponse()
		},
	}
	f := newFixture(t, m, WithUploadNotifications(true), WithUserID("u1"))

	result, err := f.pipeline.SendImageUpload(context.Background(), models.File{Name: "cat.png", Data: []byte("png")})
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "📷 I uploaded an image: cat", reqs[0].Message)
	assert.Equal(t, "u1", reqs[0].UserID)
	require.Len(t, reqs[0].SelectedImages, 1)
	assert.Equal(t, result.Item.ID, reqs[0].SelectedImages[0].ID)

	assert.Equal(t, UploadAcknowledgment, result.AgentMessage.Content)
	assert.Equal(t, 2, f.transcript.Len())
}

func TestSendImageUploadRejectsEmptyFile(t *testing.T) {
	f := newFixture(t, &fakeMessenger{})

	_, err := f.pipeline.SendImageUpload(context.Background(), models.File{Name: "empty.png"})
	assert.ErrorIs(t, err, upload.ErrEmptyFile)
	assert.Zero(t, f.transcript.Len())
	assert.Zero(t, f.store.Len())
}

func TestAgentRepliesMatchUserMessages(t *testing.T) {
	m := &fakeMessenger{
		reply: func(req models.ChatRequest) models.ChatResponse {
			if len(req.Message)%2 == 0 {
				return models.FallbackChatResponse()
			}
			return models.ChatResponse{Response: "re: " + req.Message, Status: models.StatusSuccess}
		},
	}
	f := newFixture(t, m, WithUploadNotifications(true))

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.pipeline.SendImageUpload(context.Background(), models.File{
				Name: fmt.Sprintf("img-%d.png", i),
				Data: []byte{byte(i + 1)},
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.pipeline.Send(context.Background(), fmt.Sprintf("message %d", i))
			if err != nil {
				assert.ErrorIs(t, err, ErrPending)
			}
		}()
	}
	wg.Wait()
	f.uploads.Wait()

	users := f.transcript.Count(models.SenderUser)
	agents := f.transcript.Count(models.SenderAgent)
	assert.Equal(t, users, agents)
	assert.GreaterOrEqual(t, users, 11)
	assert.Equal(t, 10, f.store.Len())
	assert.False(t, f.pipeline.Pending())
}
