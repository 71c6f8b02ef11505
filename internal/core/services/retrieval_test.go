package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

func TestRetriever_EmptyQuery(t *testing.T) {
	p := newPipeline(t, newStubEmbedding())

	hits, err := p.retriever.Search(context.Background(), "   ", domain.SearchScope{}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Zero(t, p.backend.callCount())
}

func TestRetriever_RanksBySimilarity(t *testing.T) {
	p := newPipeline(t, newStubEmbedding())
	ctx := context.Background()

	golang := p.addCourse(t, "go", "u1", "Golang uses goroutines. Golang has channels.")
	history := p.addCourse(t, "hist", "u2", "Roman history is long. Medieval history follows.")
	for _, ref := range []domain.ContentRef{golang, history} {
		_, err := p.indexer.Process(ctx, ref)
		require.NoError(t, err)
	}

	hits, err := p.retriever.Search(ctx, "golang", domain.SearchScope{}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "go", hits[0].Chunk.ContentID)
	for i, hit := range hits {
		assert.Nil(t, hit.Chunk.Embedding)
		assert.GreaterOrEqual(t, hit.Score, domain.MinSimilarityScore)
		assert.LessOrEqual(t, hit.Score, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, hits[i-1].Score, hit.Score)
		}
	}

	// Scope by owner excludes the better match.
	hits, err = p.retriever.Search(ctx, "golang", domain.SearchScope{OwnerID: "u2"}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, hit := range hits {
		assert.Equal(t, "hist", hit.Chunk.ContentID)
	}
}

func TestRetriever_DefaultTopK(t *testing.T) {
	p := newPipeline(t, newStubEmbedding())
	ctx := context.Background()

	ref := domain.ContentRef{ID: "c1", Type: domain.ContentTypeCourse}
	chunks := make([]domain.Chunk, DefaultTopK+5)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ContentID:   ref.ID,
			ContentType: ref.Type,
			ChunkIndex:  i,
			Text:        fmt.Sprintf("chunk %d", i),
			Embedding:   []float32{1, float32(i), 0, 0},
		}
	}
	require.NoError(t, p.chunks.Upsert(ctx, ref, chunks, nil))

	hits, err := p.retriever.Search(ctx, "anything", domain.SearchScope{}, 0)
	require.NoError(t, err)
	assert.Len(t, hits, DefaultTopK)
}

func TestRetriever_EmbeddingUnavailable(t *testing.T) {
	p := newPipeline(t, newStubEmbedding())
	r := NewRetriever(NewEmbeddingGenerator(nil, testEmbeddingSettings()), p.chunks)

	_, err := r.Search(context.Background(), "golang", domain.SearchScope{}, 5)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
