package driven

import (
	"context"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

// ChunkStore persists chunks with their vectors and serves similarity search.
// It is the only shared mutable resource of the pipeline.
type ChunkStore interface {
	// Upsert replaces all chunks of the content in one transaction.
	// Readers see either the full old set or the full new set, never a mix.
	// Every chunk must carry an embedding.
	Upsert(ctx context.Context, ref domain.ContentRef, chunks []domain.Chunk, metadata map[string]any) error

	// Delete removes all chunks of the content.
	Delete(ctx context.Context, ref domain.ContentRef) error

	// Count returns the number of chunks stored for the content.
	Count(ctx context.Context, ref domain.ContentRef) (int, error)

	// List returns the chunks of the content ordered by chunk index.
	List(ctx context.Context, ref domain.ContentRef) ([]domain.Chunk, error)

	// Search returns the topK chunks nearest to the query vector within scope,
	// ordered by descending score.
	Search(ctx context.Context, query []float32, scope domain.SearchScope, topK int) ([]domain.SearchHit, error)
}

// UpsertBatchSize is the number of chunk rows written per insert statement.
// It matches the default embedding batch size.
const UpsertBatchSize = 50
