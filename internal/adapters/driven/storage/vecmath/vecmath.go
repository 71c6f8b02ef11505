// Package vecmath holds the vector helpers shared by the storage adapters
// that rank chunks in Go rather than in the database.
package vecmath

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

// Cosine returns the cosine similarity of two vectors.
// Vectors of different length or zero magnitude score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Encode serialises a vector as little-endian float32 values.
func Encode(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode parses a vector written by Encode.
func Decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("decode vector: length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// InScope reports whether a chunk of the given content and owner is visible
// to the scope.
func InScope(scope domain.SearchScope, ref domain.ContentRef, ownerID string) bool {
	if len(scope.ContentTypes) > 0 && !containsType(scope.ContentTypes, ref.Type) {
		return false
	}
	if len(scope.ContentIDs) > 0 && !containsString(scope.ContentIDs, ref.ID) {
		return false
	}
	if scope.OwnerID != "" && scope.OwnerID != ownerID {
		return false
	}
	return true
}

// Rank scores hits, sorts them best first and keeps the topK.
// Ties are broken by content ID then chunk index for stable output.
func Rank(hits []domain.SearchHit, topK int) []domain.SearchHit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Chunk.ContentID != hits[j].Chunk.ContentID {
			return hits[i].Chunk.ContentID < hits[j].Chunk.ContentID
		}
		return hits[i].Chunk.ChunkIndex < hits[j].Chunk.ChunkIndex
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// OwnerOf returns the owner recorded in chunk or content metadata.
func OwnerOf(metas ...map[string]any) string {
	for _, m := range metas {
		if s, ok := m[domain.MetaOwnerID].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func containsType(list []domain.ContentType, v domain.ContentType) bool {
	for _, t := range list {
		if t == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
