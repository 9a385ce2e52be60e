package samples

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/img-edit-agent/studio/internal/models"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "samples.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	d := Defaults()
	require.Len(t, d, 6)
	assert.NoError(t, validate(d))
	assert.Equal(t, "https://img-edit-agent-bucket.s3.us-east-1.amazonaws.com/public/seoul_night.png", d[0].URL)
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
samples:
  - id: beach
    title: Beach
    description: Sunny beach
    url: https://example.com/beach.png
  - id: forest
    title: Forest
    url: https://example.com/forest.png
`)

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Sample{
		{ID: "beach", Title: "Beach", Description: "Sunny beach", URL: "https://example.com/beach.png"},
		{ID: "forest", Title: "Forest", URL: "https://example.com/forest.png"},
	}, got)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "malformed yaml",
			content: "samples: [",
			want:    "failed to parse",
		},
		{
			name:    "missing id",
			content: "samples:\n  - url: https://example.com/a.png\n",
			want:    "missing id",
		},
		{
			name:    "missing url",
			content: "samples:\n  - id: a\n",
			want:    "missing url",
		},
		{
			name:    "duplicate id",
			content: "samples:\n  - id: a\n    url: https://x/a\n  - id: a\n    url: https://x/b\n",
			want:    "duplicate id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestItems(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	items := Items([]Sample{{ID: "a", Title: "A", URL: "https://x/a"}}, now)

	require.Len(t, items, 1)
	assert.Equal(t, models.ImageItem{
		ID:         "a",
		URL:        "https://x/a",
		Title:      "A",
		CreatedAt:  now,
		Provenance: models.ProvenanceSample,
	}, items[0])
}
