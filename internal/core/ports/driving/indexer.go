package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

// Indexer runs the extract, chunk, embed and store pipeline for content.
type Indexer interface {
	// Process indexes one content item synchronously.
	// The content status ends completed or failed; on failure the error is
	// also returned. Concurrent calls for the same content must be
	// serialised by the caller.
	Process(ctx context.Context, ref domain.ContentRef) (*ProcessResult, error)

	// Enqueue schedules content for background indexing.
	Enqueue(ctx context.Context, ref domain.ContentRef, priority int, metadata map[string]any) (*domain.QueueEntry, error)

	// Remove deletes all chunks of the content.
	Remove(ctx context.Context, ref domain.ContentRef) error

	// Status reports the content status and its queue entry, if any.
	Status(ctx context.Context, ref domain.ContentRef) (*IndexStatus, error)
}

// ProcessResult summarises one pipeline run.
type ProcessResult struct {
	// Ref identifies the processed content.
	Ref domain.ContentRef

	// ChunkCount is the number of chunks stored.
	ChunkCount int

	// Skipped is set when extraction legitimately produced no content.
	Skipped bool

	// SkipReason explains a skip (e.g. "no_transcript").
	SkipReason string

	// Strategy is the chunking strategy used.
	Strategy string

	// Duration is the wall time of the run.
	Duration time.Duration
}

// IndexStatus combines the content status with its queue entry.
type IndexStatus struct {
	Content *domain.ContentStatus
	Queue   *domain.QueueEntry
	Chunks  int
}
