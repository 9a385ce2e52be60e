// Package samples provides the images every new session starts with.
package samples

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/img-edit-agent/studio/internal/models"
)

const publicBucket = "https://img-edit-agent-bucket.s3.us-east-1.amazonaws.com/public/"

// Sample is one seed image
type Sample struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
}

type file struct {
	Samples []Sample `yaml:"samples"`
}

// Defaults returns the built-in before/after examples
func Defaults() []Sample {
	return []Sample{
		{ID: "sample-seoul-night", Title: "Seoul at Night", Description: "Traditional street in Seoul after dark", URL: publicBucket + "seoul_night.png"},
		{ID: "sample-seoul-day", Title: "Seoul by Day", Description: "The same street in bright daylight", URL: publicBucket + "gen_seoul_day.png"},
		{ID: "sample-picasso-woman", Title: "Picasso Woman", Description: "Cubist portrait of a woman", URL: publicBucket + "picasso_woman.png"},
		{ID: "sample-woman", Title: "Professional Woman", Description: "Realistic studio headshot", URL: publicBucket + "gen_woman.png"},
		{ID: "sample-nyc-bw", Title: "NYC Black & White", Description: "Vintage monochrome skyline at night", URL: publicBucket + "nyc_bw.png"},
		{ID: "sample-nyc-color", Title: "NYC in Color", Description: "Colorized skyline with warm lights", URL: publicBucket + "gen_color_nyc.png"},
	}
}

// Load reads a YAML seed list of the form `samples: [{id, title, description, url}]`
func Load(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sample file %s: %w", path, err)
	}

	if err := validate(f.Samples); err != nil {
		return nil, fmt.Errorf("invalid sample file %s: %w", path, err)
	}
	return f.Samples, nil
}

func validate(samples []Sample) error {
	seen := make(map[string]bool, len(samples))
	var errs []error
	for i, s := range samples {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("sample %d: missing id", i))
			continue
		}
		if s.URL == "" {
			errs = append(errs, fmt.Errorf("sample %q: missing url", s.ID))
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("sample %q: duplicate id", s.ID))
		}
		seen[s.ID] = true
	}
	return errors.Join(errs...)
}

// Items converts samples into gallery items stamped with now
func Items(samples []Sample, now time.Time) []models.ImageItem {
	items := make([]models.ImageItem, 0, len(samples))
	for _, s := range samples {
		items = append(items, models.ImageItem{
			ID:          s.ID,
			URL:         s.URL,
			Title:       s.Title,
			Description: s.Description,
			CreatedAt:   now,
			Provenance:  models.ProvenanceSample,
		})
	}
	return items
}
