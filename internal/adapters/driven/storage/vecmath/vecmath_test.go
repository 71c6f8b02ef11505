package vecmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 2}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 2}))
}

func TestEncodeDecode(t *testing.T) {
	v := []float32{0.5, -1.25, 3}

	b := Encode(v)
	require.Len(t, b, 12)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestInScope(t *testing.T) {
	ref := domain.ContentRef{ID: "b1", Type: domain.ContentTypeBook}

	assert.True(t, InScope(domain.SearchScope{}, ref, ""))
	assert.True(t, InScope(domain.SearchScope{ContentTypes: []domain.ContentType{domain.ContentTypeBook}}, ref, ""))
	assert.False(t, InScope(domain.SearchScope{ContentTypes: []domain.ContentType{domain.ContentTypeVideo}}, ref, ""))
	assert.True(t, InScope(domain.SearchScope{ContentIDs: []string{"x", "b1"}}, ref, ""))
	assert.False(t, InScope(domain.SearchScope{ContentIDs: []string{"x"}}, ref, ""))
	assert.True(t, InScope(domain.SearchScope{OwnerID: "u1"}, ref, "u1"))
	assert.False(t, InScope(domain.SearchScope{OwnerID: "u1"}, ref, "u2"))
}

func TestRank(t *testing.T) {
	hits := []domain.SearchHit{
		{Chunk: domain.Chunk{ContentID: "a", ChunkIndex: 1}, Score: 0.5},
		{Chunk: domain.Chunk{ContentID: "a", ChunkIndex: 0}, Score: 0.9},
		{Chunk: domain.Chunk{ContentID: "b", ChunkIndex: 0}, Score: 0.5},
	}

	got := Rank(hits, 2)

	require.Len(t, got, 2)
	assert.Equal(t, 0.9, got[0].Score)
	assert.Equal(t, "a", got[1].Chunk.ContentID)
	assert.Equal(t, 1, got[1].Chunk.ChunkIndex)
}

func TestOwnerOf(t *testing.T) {
	assert.Equal(t, "u1", OwnerOf(nil, map[string]any{domain.MetaOwnerID: "u1"}))
	assert.Equal(t, "", OwnerOf(map[string]any{"x": 1}))
}
