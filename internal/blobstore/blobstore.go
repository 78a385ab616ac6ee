// Package blobstore stores uploaded claim documents and checks that the
// store is usable before a claim is accepted.
package blobstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"incapacity-claims/internal/domain"
)

// BlobStore is the object storage used for documents.
// Upload returns a locator that Fetch accepts.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, contentType, name string) (string, error)
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// DefaultMaxUploadBytes is used when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

var allowedTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
}

// ValidateDocument checks the content type and size of a document and returns
// the extension to store it under.
func ValidateDocument(contentType string, size, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	ext, ok := allowedTypes[ct]
	if !ok {
		return "", fmt.Errorf("%w: content type %q not allowed", domain.ErrValidation, contentType)
	}
	if size <= 0 {
		return "", fmt.Errorf("%w: empty document", domain.ErrValidation)
	}
	if size > maxBytes {
		return "", fmt.Errorf("%w: document is %d bytes, limit is %d", domain.ErrValidation, size, maxBytes)
	}
	return ext, nil
}

// ObjectName returns a collision-free object name with the given extension.
func ObjectName(ext string) string {
	return uuid.NewString() + ext
}
