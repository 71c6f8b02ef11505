package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

func testEmbeddingSettings() domain.EmbeddingSettings {
	s := domain.DefaultAppSettings().Embedding
	s.RequestsPerSecond = 0
	return s
}

func TestEmbeddingGenerator_BatchesInOrder(t *testing.T) {
	backend := newStubEmbedding()
	backend.embed = func(text string) []float32 {
		var n float32
		_, _ = fmt.Sscanf(text, "search_document: text-%f", &n)
		return []float32{n, 1, 1, 1}
	}
	gen := NewEmbeddingGenerator(backend, testEmbeddingSettings())

	texts := make([]string, 120)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	vectors, err := gen.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 120)
	for i, v := range vectors {
		assert.InDelta(t, float32(i), v[0], 1e-6)
	}

	require.Len(t, backend.batches, 3)
	assert.Len(t, backend.batches[0], 50)
	assert.Len(t, backend.batches[1], 50)
	assert.Len(t, backend.batches[2], 20)
	assert.Equal(t, "search_document: text-0", backend.batches[0][0])
}

func TestEmbeddingGenerator_EmptyInput(t *testing.T) {
	backend := newStubEmbedding()
	gen := NewEmbeddingGenerator(backend, testEmbeddingSettings())

	vectors, err := gen.EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, backend.callCount())
}

func TestEmbeddingGenerator_QueryPrefix(t *testing.T) {
	backend := newStubEmbedding()
	gen := NewEmbeddingGenerator(backend, testEmbeddingSettings())

	v, err := gen.EmbedQuery(context.Background(), "golang channels")
	require.NoError(t, err)
	assert.Len(t, v, 4)
	require.Len(t, backend.batches, 1)
	assert.Equal(t, []string{"search_query: golang channels"}, backend.batches[0])
}

func TestEmbeddingGenerator_RetriesTransientFailures(t *testing.T) {
	backend := newStubEmbedding()
	backend.failures = 2
	gen := NewEmbeddingGenerator(backend, testEmbeddingSettings(), WithRetryBaseDelay(time.Millisecond))

	v, err := gen.EmbedQuery(context.Background(), "q")
	require.NoError(t, err)
	assert.NotEmpty(t, v)
	assert.Equal(t, 3, backend.callCount())
}

func TestEmbeddingGenerator_RetriesExhausted(t *testing.T) {
	backend := newStubEmbedding()
	backend.failures = -1
	gen := NewEmbeddingGenerator(backend, testEmbeddingSettings(), WithRetryBaseDelay(time.Millisecond))

	_, err := gen.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.Error(t, err)

	var embedErr *domain.EmbeddingError
	require.True(t, errors.As(err, &embedErr))
	assert.Equal(t, DefaultEmbeddingAttempts, embedErr.Attempts)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.ErrorIs(t, err, errBackendDown)
	assert.Equal(t, DefaultEmbeddingAttempts, backend.callCount())
}

func TestEmbeddingGenerator_DimensionMismatchNotRetried(t *testing.T) {
	backend := newStubEmbedding()
	backend.embed = func(string) []float32 { return []float32{1, 2} }
	gen := NewEmbeddingGenerator(backend, testEmbeddingSettings(), WithRetryBaseDelay(time.Millisecond))

	_, err := gen.EmbedDocuments(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 1, backend.callCount())
}

func TestEmbeddingGenerator_Unavailable(t *testing.T) {
	gen := NewEmbeddingGenerator(nil, testEmbeddingSettings())

	assert.False(t, gen.Available())
	assert.Zero(t, gen.Dimensions())

	_, err := gen.EmbedQuery(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, domain.ErrEmbedding)

	assert.ErrorIs(t, gen.Ping(context.Background()), domain.ErrEmbeddingUnavailable)
}

func TestEmbeddingGenerator_CircuitOpensAfterConsecutiveFailures(t *testing.T) {
	backend := newStubEmbedding()
	backend.failures = -1
	settings := testEmbeddingSettings()
	settings.MaxRetries = 1
	gen := NewEmbeddingGenerator(backend, settings)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := gen.EmbedQuery(ctx, "q")
		require.ErrorIs(t, err, errBackendDown)
	}

	_, err := gen.EmbedQuery(ctx, "q")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, backend.callCount())
}

// slowEmbedding blocks until the call context ends.
type slowEmbedding struct {
	*stubEmbedding
}

func (s *slowEmbedding) EmbedBatch(ctx context.Context, _ []string) ([][]float32, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEmbeddingGenerator_PerCallTimeout(t *testing.T) {
	backend := &slowEmbedding{stubEmbedding: newStubEmbedding()}
	settings := testEmbeddingSettings()
	settings.Timeout = 20 * time.Millisecond
	settings.MaxRetries = 2
	gen := NewEmbeddingGenerator(backend, settings, WithRetryBaseDelay(time.Millisecond))

	_, err := gen.EmbedQuery(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var embedErr *domain.EmbeddingError
	require.True(t, errors.As(err, &embedErr))
	assert.Equal(t, 2, embedErr.Attempts)
	assert.Equal(t, 2, backend.callCount())
}

func TestEmbeddingGenerator_CancelledContextStopsRetries(t *testing.T) {
	backend := newStubEmbedding()
	backend.failures = -1
	gen := NewEmbeddingGenerator(backend, testEmbeddingSettings(), WithRetryBaseDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := gen.EmbedQuery(ctx, "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, backend.callCount())
}
