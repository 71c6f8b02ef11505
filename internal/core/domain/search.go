package domain

import "math"

// SearchScope restricts a similarity query to a subset of the indexed content.
// Empty fields do not filter.
type SearchScope struct {
	// ContentTypes filters to specific content types.
	ContentTypes []ContentType

	// ContentIDs filters to specific content records.
	ContentIDs []string

	// OwnerID filters to content owned by one user.
	OwnerID string
}

// IsEmpty reports whether the scope applies no filter.
func (s SearchScope) IsEmpty() bool {
	return len(s.ContentTypes) == 0 && len(s.ContentIDs) == 0 && s.OwnerID == ""
}

// SearchHit represents a single ranked search result.
type SearchHit struct {
	// Chunk is the matched chunk. Embedding is not populated.
	Chunk Chunk

	// Score is the normalised similarity; 1.0 is a perfect match.
	Score float64
}

// MinSimilarityScore is the floor applied to low or negative similarities
// so downstream ranking never sees zero or negative scores.
const MinSimilarityScore = 0.01

// NormaliseScore clamps a cosine similarity into [MinSimilarityScore, 1].
func NormaliseScore(similarity float64) float64 {
	if math.IsNaN(similarity) {
		return MinSimilarityScore
	}
	if similarity > 1 {
		return 1
	}
	if similarity < MinSimilarityScore {
		return MinSimilarityScore
	}
	return similarity
}
