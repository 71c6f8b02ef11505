package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/coursedex/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
// Search is a brute-force cosine scan.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[domain.ContentRef][]domain.Chunk
	owners map[domain.ContentRef]string
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		chunks: make(map[domain.ContentRef][]domain.Chunk),
		owners: make(map[domain.ContentRef]string),
	}
}

// Upsert replaces all chunks of the content. The set is validated in full
// before anything is replaced.
func (s *ChunkStore) Upsert(_ context.Context, ref domain.ContentRef, chunks []domain.Chunk, metadata map[string]any) error {
	if err := ref.Validate(); err != nil {
		return &domain.StorageError{Ref: ref, Op: "upsert", Err: err}
	}

	next := make([]domain.Chunk, len(chunks))
	seen := make(map[int]bool, len(chunks))
	dims := -1
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return &domain.StorageError{Ref: ref, Op: "upsert",
				Err: fmt.Errorf("%w: chunk %d has no embedding", domain.ErrInvalidInput, c.ChunkIndex)}
		}
		if dims >= 0 && len(c.Embedding) != dims {
			return &domain.StorageError{Ref: ref, Op: "upsert",
				Err: fmt.Errorf("%w: chunk %d has %d dimensions, want %d", domain.ErrDimensionMismatch, c.ChunkIndex, len(c.Embedding), dims)}
		}
		dims = len(c.Embedding)
		if seen[c.ChunkIndex] {
			return &domain.StorageError{Ref: ref, Op: "upsert",
				Err: fmt.Errorf("%w: duplicate chunk index %d", domain.ErrAlreadyExists, c.ChunkIndex)}
		}
		seen[c.ChunkIndex] = true

		c.ContentID = ref.ID
		c.ContentType = ref.Type
		c.Embedding = append([]float32(nil), c.Embedding...)
		c.Metadata = copyMap(c.Metadata)
		next[i] = c
	}
	sort.Slice(next, func(i, j int) bool { return next[i].ChunkIndex < next[j].ChunkIndex })

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(next) == 0 {
		delete(s.chunks, ref)
		delete(s.owners, ref)
		return nil
	}
	s.chunks[ref] = next
	s.owners[ref] = vecmath.OwnerOf(metadata, next[0].Metadata)
	return nil
}

// Delete removes all chunks of the content.
func (s *ChunkStore) Delete(_ context.Context, ref domain.ContentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, ref)
	delete(s.owners, ref)
	return nil
}

// Count returns the number of chunks stored for the content.
func (s *ChunkStore) Count(_ context.Context, ref domain.ContentRef) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks[ref]), nil
}

// List returns the chunks of the content ordered by index.
func (s *ChunkStore) List(_ context.Context, ref domain.ContentRef) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.chunks[ref]
	out := make([]domain.Chunk, len(stored))
	for i, c := range stored {
		c.Embedding = append([]float32(nil), c.Embedding...)
		c.Metadata = copyMap(c.Metadata)
		out[i] = c
	}
	return out, nil
}

// Search scores every chunk in scope against the query.
func (s *ChunkStore) Search(_ context.Context, query []float32, scope domain.SearchScope, topK int) ([]domain.SearchHit, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []domain.SearchHit
	for ref, chunks := range s.chunks {
		if !vecmath.InScope(scope, ref, s.owners[ref]) {
			continue
		}
		for _, c := range chunks {
			if len(c.Embedding) != len(query) {
				return nil, fmt.Errorf("%w: query has %d dimensions, stored chunks have %d",
					domain.ErrDimensionMismatch, len(query), len(c.Embedding))
			}
			hit := c
			hit.Embedding = nil
			hit.Metadata = copyMap(c.Metadata)
			hits = append(hits, domain.SearchHit{
				Chunk: hit,
				Score: domain.NormaliseScore(vecmath.Cosine(query, c.Embedding)),
			})
		}
	}
	return vecmath.Rank(hits, topK), nil
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
