package blobstore

import (
	"context"
	"fmt"
	"sync"

	"incapacity-claims/internal/domain"
)

// MemoryBlobStore keeps objects in memory. Locators are "mem://<name>".
type MemoryBlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailUploads makes every Upload fail; used to simulate an outage.
	FailUploads bool
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{objects: map[string][]byte{}}
}

var _ BlobStore = (*MemoryBlobStore)(nil)

func (s *MemoryBlobStore) Upload(ctx context.Context, data []byte, _ string, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUploads {
		return "", fmt.Errorf("%w: store unavailable", domain.ErrUploadFailed)
	}
	locator := "mem://" + name
	s.objects[locator] = append([]byte(nil), data...)
	return locator, nil
}

func (s *MemoryBlobStore) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[locator]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", locator, domain.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Len returns the number of stored objects.
func (s *MemoryBlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// SetFailUploads toggles FailUploads under the lock.
func (s *MemoryBlobStore) SetFailUploads(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailUploads = fail
}
