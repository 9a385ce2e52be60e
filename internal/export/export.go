// Package export writes session history as Parquet files for offline analysis.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/img-edit-agent/studio/internal/models"
	"github.com/img-edit-agent/studio/internal/resource"
)

// MessageRecord is one transcript entry in the messages export
type MessageRecord struct {
	SessionID string `json:"session_id" parquet:"session_id"`
	MessageID string `json:"message_id" parquet:"message_id"`
	Sender    string `json:"sender" parquet:"sender"`
	Content   string `json:"content" parquet:"content"`
	Timestamp string `json:"timestamp" parquet:"timestamp"`
}

// ImageRecord is one gallery item in the images export
type ImageRecord struct {
	SessionID   string `json:"session_id" parquet:"session_id"`
	ImageID     string `json:"image_id" parquet:"image_id"`
	Type        string `json:"type" parquet:"type"`
	Title       string `json:"title" parquet:"title"`
	Description string `json:"description" parquet:"description"`
	URL         string `json:"url" parquet:"url"`
	Selected    bool   `json:"selected" parquet:"selected"`
	Timestamp   string `json:"timestamp" parquet:"timestamp"`
}

// MessageRecords flattens a transcript
func MessageRecords(sessionID string, msgs []models.Message) []MessageRecord {
	records := make([]MessageRecord, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, MessageRecord{
			SessionID: sessionID,
			MessageID: m.ID,
			Sender:    string(m.Sender),
			Content:   m.Content,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	return records
}

// ImageRecords flattens a gallery; local preview references are left out of the url column
func ImageRecords(sessionID string, items []models.ImageItem, selected []string) []ImageRecord {
	isSelected := make(map[string]bool, len(selected))
	for _, id := range selected {
		isSelected[id] = true
	}

	records := make([]ImageRecord, 0, len(items))
	for _, item := range items {
		url := item.URL
		if resource.IsLocalRef(url) {
			url = ""
		}
		records = append(records, ImageRecord{
			SessionID:   sessionID,
			ImageID:     item.ID,
			Type:        string(item.Provenance),
			Title:       item.Title,
			Description: item.Description,
			URL:         url,
			Selected:    isSelected[item.ID],
			Timestamp:   item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return records
}

// Write encodes rows as a single Parquet file
func Write[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			_ = writer.Close()
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// Read decodes every row of a Parquet file
func Read[T any](data []byte) ([]T, error) {
	pf, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[T](pf)
	defer reader.Close()

	var records []T
	rows := make([]T, 128)
	for {
		n, err := reader.Read(rows)
		records = append(records, rows[:n]...)
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return records, nil
}
