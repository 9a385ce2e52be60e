package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/img-edit-agent/studio/internal/models"
	"github.com/img-edit-agent/studio/internal/upload"
)

var errNotAnImage = errors.New("uploaded file is not an image")

// readUpload loads a multipart file into memory and checks that it holds an image
func readUpload(fh *multipart.FileHeader) (models.File, error) {
	if fh.Size > upload.MaxFileSize {
		return models.File{}, upload.ErrFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return models.File{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, upload.MaxFileSize+1))
	if err != nil {
		return models.File{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return models.File{}, upload.ErrEmptyFile
	}
	if len(data) > upload.MaxFileSize {
		return models.File{}, upload.ErrFileTooLarge
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return models.File{}, fmt.Errorf("%w: detected %s", errNotAnImage, contentType)
	}

	if width, height, err := imageDimensions(data); err == nil {
		slog.Debug("Upload received", "filename", fh.Filename, "content_type", contentType, "width", width, "height", height)
	}

	return models.File{
		Name:        fh.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func imageDimensions(data []byte) (int, int, error) {
	img, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return img.Width, img.Height, nil
}
