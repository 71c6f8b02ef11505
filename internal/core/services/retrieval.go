package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/core/ports/driving"
	"github.com/custodia-labs/coursedex/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.Retriever = (*Retriever)(nil)

// Search result limits.
const (
	DefaultTopK = 10
	MaxTopK     = 100
)

// Retriever embeds queries and ranks stored chunks against them.
type Retriever struct {
	embedder *EmbeddingGenerator
	chunks   driven.ChunkStore
}

// NewRetriever creates a new retriever.
func NewRetriever(embedder *EmbeddingGenerator, chunks driven.ChunkStore) *Retriever {
	return &Retriever{embedder: embedder, chunks: chunks}
}

// Search returns the topK chunks most similar to the query within scope.
// An empty query returns no hits.
func (r *Retriever) Search(ctx context.Context, query string, scope domain.SearchScope, topK int) ([]domain.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchHit{}, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	topK = min(topK, MaxTopK)

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.chunks.Search(ctx, vector, scope, topK)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	logger.Component("retriever").Debug("search done", "hits", len(hits), "top_k", topK)
	return hits, nil
}
