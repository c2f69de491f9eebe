package storage

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"

	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
)

// Upload categories.
const (
	CategoryAvatar    = "avatar"
	CategoryPostPhoto = "post_photo"
	CategoryBirdIcon  = "bird_icon"
)

var (
	ErrFileTooLarge    = apperr.New(apperr.KindInvalidArgument, "file exceeds maximum size")
	ErrInvalidMimeType = apperr.New(apperr.KindInvalidArgument, "file type not allowed")
	ErrEmptyFile       = apperr.New(apperr.KindInvalidArgument, "file is empty")
)

// AllowedMimeTypes lists accepted content types per category.
var AllowedMimeTypes = map[string][]string{
	CategoryAvatar:    {"image/jpeg", "image/png", "image/webp"},
	CategoryPostPhoto: {"image/jpeg", "image/png", "image/webp"},
	CategoryBirdIcon:  {"image/jpeg", "image/png", "image/webp", "image/svg+xml"},
}

// MaxFileSizes holds the upload limit in bytes per category.
var MaxFileSizes = map[string]int64{
	CategoryAvatar:    5 << 20,
	CategoryPostPhoto: 10 << 20,
	CategoryBirdIcon:  2 << 20,
}

// ValidateFile reads at most maxSize bytes and checks the detected
// content type against the category.
func ValidateFile(reader io.Reader, category string, maxSize int64) ([]byte, string, error) {
	allowedTypes, ok := AllowedMimeTypes[category]
	if !ok {
		return nil, "", fmt.Errorf("unknown category: %s", category)
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyFile
	}
	if int64(len(data)) > maxSize {
		return nil, "", ErrFileTooLarge
	}

	// magic bytes, never the client-supplied header
	detected := mimetype.Detect(data)
	for _, t := range allowedTypes {
		if detected.Is(t) {
			return data, t, nil
		}
	}
	return nil, "", ErrInvalidMimeType
}

// ValidateAndBuffer validates with the category's size limit.
func ValidateAndBuffer(reader io.Reader, category string) (*bytes.Reader, string, error) {
	maxSize, ok := MaxFileSizes[category]
	if !ok {
		maxSize = 10 << 20
	}

	data, mimeType, err := ValidateFile(reader, category, maxSize)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), mimeType, nil
}

// ExtensionForMime returns the file extension for a MIME type
func ExtensionForMime(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	default:
		return ""
	}
}
