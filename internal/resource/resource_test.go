package resource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndOpen(t *testing.T) {
	r := NewRegistry()
	src := []byte("pixels")
	h := r.Create(src, "image/png")

	assert.True(t, IsLocalRef(h.Ref()))
	assert.Equal(t, 1, r.Live())

	// the handle keeps its own copy
	src[0] = 'X'

	data, contentType, err := r.Open(h.Ref())
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))
	assert.Equal(t, "image/png", contentType)
}

func TestReleaseInvalidatesReference(t *testing.T) {
	r := NewRegistry()
	h := r.Create([]byte("pixels"), "image/jpeg")

	assert.True(t, h.Release())
	assert.False(t, h.Release(), "second release is a no-op")
	assert.True(t, h.Released())
	assert.Equal(t, 0, r.Live())

	_, _, err := h.Open()
	assert.ErrorIs(t, err, ErrReleased)

	_, _, err = r.Open(h.Ref())
	assert.ErrorIs(t, err, ErrReleased)
}

func TestOpenUnknownReference(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.Open("blob:does-not-exist")
	assert.ErrorIs(t, err, ErrUnknownRef)
}

func TestIsLocalRef(t *testing.T) {
	tests := []struct {
		ref      string
		expected bool
	}{
		{"blob:1234", true},
		{"https://cdn/x", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsLocalRef(tt.ref))
		})
	}
}

func TestScheduledReleaseFires(t *testing.T) {
	r := NewRegistry()
	h := r.Create([]byte("pixels"), "image/png")

	s := ScheduleRelease(h, 10*time.Millisecond)

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduled release did not fire")
	}
	assert.True(t, h.Released())
	assert.False(t, s.Stop(), "stop after firing reports false")
}

func TestScheduledReleaseStop(t *testing.T) {
	r := NewRegistry()
	h := r.Create([]byte("pixels"), "image/png")

	s := ScheduleRelease(h, time.Hour)
	assert.True(t, s.Stop())

	<-s.Done()
	assert.False(t, h.Released(), "stopping keeps the handle alive")
}

func TestScheduledReleaseNow(t *testing.T) {
	r := NewRegistry()
	h := r.Create([]byte("pixels"), "image/png")

	s := ScheduleRelease(h, time.Hour)
	s.ReleaseNow()

	<-s.Done()
	assert.True(t, h.Released())
	assert.Equal(t, 0, r.Live())
}
