package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// Ensure BlobStore implements the interface.
var _ driven.BlobStorage = (*BlobStore)(nil)

// BlobStore is an in-memory implementation of driven.BlobStorage.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

// Download returns the bytes stored at path.
func (s *BlobStore) Download(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[path]
	if !ok {
		return nil, fmt.Errorf("%w: blob %q", domain.ErrNotFound, path)
	}
	return append([]byte(nil), data...), nil
}

// Upload stores data at path.
func (s *BlobStore) Upload(_ context.Context, data []byte, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = append([]byte(nil), data...)
	return nil
}
