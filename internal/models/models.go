package models

import "time"

// Provenance is the origin category of an image item
type Provenance string

const (
	ProvenanceSample    Provenance = "sample"
	ProvenanceUploaded  Provenance = "uploaded"
	ProvenanceGenerated Provenance = "generated"
)

// Valid reports whether p is one of the known provenances
func (p Provenance) Valid() bool {
	switch p {
	case ProvenanceSample, ProvenanceUploaded, ProvenanceGenerated:
		return true
	}
	return false
}

// ImageItem represents one image in the gallery
type ImageItem struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"timestamp"`
	Provenance  Provenance `json:"type"`
}

// Sender identifies who authored a transcript message
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Message is one transcript entry
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// File is a user-selected local file waiting to be uploaded
type File struct {
	Name        string
	ContentType string
	Data        []byte
}
