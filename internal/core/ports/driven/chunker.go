package driven

import (
	"context"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

// ChunkStrategy identifies a chunking algorithm.
type ChunkStrategy string

// Available chunking strategies.
const (
	// ChunkStrategySentence groups sentences up to a size with overlap.
	ChunkStrategySentence ChunkStrategy = "sentence"

	// ChunkStrategyTimeWindow splits timed segments into duration windows,
	// per chapter when chapters are present.
	ChunkStrategyTimeWindow ChunkStrategy = "time_window"
)

// Chunker splits normalised content into bounded, overlapping chunks.
// Chunkers are pure functions over extracted content.
type Chunker interface {
	// Strategy returns the strategy identifier for logging and configuration.
	Strategy() ChunkStrategy

	// Chunk splits content into chunks with contiguous 0-based indexes.
	// Empty content produces zero chunks and no error.
	Chunk(ctx context.Context, ref domain.ContentRef, content *domain.ExtractedContent) ([]domain.Chunk, error)
}

// ChunkerSelector picks the chunker for a given content.
type ChunkerSelector interface {
	// Select returns the chunker to use for the content.
	Select(content *domain.ExtractedContent) (Chunker, error)
}
