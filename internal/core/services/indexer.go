package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/core/ports/driving"
	"github.com/custodia-labs/coursedex/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.Indexer = (*Indexer)(nil)

// Indexer runs the extract, chunk, embed and store pipeline.
type Indexer struct {
	extractors driven.ExtractorRegistry
	chunkers   driven.ChunkerSelector
	embedder   *EmbeddingGenerator
	chunks     driven.ChunkStore
	queue      driven.ProcessingQueue
	content    driven.ContentRepository
	now        func() time.Time
	log        *slog.Logger
}

// NewIndexer creates a new indexer.
func NewIndexer(
	extractors driven.ExtractorRegistry,
	chunkers driven.ChunkerSelector,
	embedder *EmbeddingGenerator,
	chunks driven.ChunkStore,
	queue driven.ProcessingQueue,
	content driven.ContentRepository,
) *Indexer {
	return &Indexer{
		extractors: extractors,
		chunkers:   chunkers,
		embedder:   embedder,
		chunks:     chunks,
		queue:      queue,
		content:    content,
		now:        time.Now,
		log:        logger.Component("indexer"),
	}
}

// Process indexes one content item. The chunk set of the content is only
// ever replaced as a whole, so readers never observe a partial run.
func (ix *Indexer) Process(ctx context.Context, ref domain.ContentRef) (*driving.ProcessResult, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	started := ix.now()
	result := &driving.ProcessResult{Ref: ref}

	ix.writeStatus(ctx, domain.ContentStatus{Ref: ref, Status: domain.StatusProcessing})

	extractor, err := ix.extractors.Get(ref.Type)
	if err != nil {
		return nil, ix.fail(ctx, ref, &domain.ExtractionError{Ref: ref, Reason: "no extractor", Err: err})
	}

	content, err := extractor.Extract(ctx, ref.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrExtraction) {
			err = &domain.ExtractionError{Ref: ref, Err: err}
		}
		return nil, ix.fail(ctx, ref, err)
	}

	if content.IsEmpty() {
		result.Skipped = true
		result.SkipReason = content.SkipReason
		if err := ix.complete(ctx, ref, nil, content.Metadata); err != nil {
			return nil, err
		}
		result.Duration = ix.now().Sub(started)
		ix.log.Info("content has nothing to index", "ref", ref.String(), "reason", content.SkipReason)
		return result, nil
	}

	chunker, err := ix.chunkers.Select(content)
	if err != nil {
		return nil, ix.fail(ctx, ref, &domain.ChunkingError{Ref: ref, Reason: "no chunker", Err: err})
	}
	result.Strategy = string(chunker.Strategy())

	chunks, err := chunker.Chunk(ctx, ref, content)
	if err != nil {
		if !errors.Is(err, domain.ErrChunking) {
			err = &domain.ChunkingError{Ref: ref, Err: err}
		}
		return nil, ix.fail(ctx, ref, err)
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			var embedErr *domain.EmbeddingError
			if errors.As(err, &embedErr) {
				embedErr.Ref = ref
			} else {
				err = &domain.EmbeddingError{Ref: ref, Err: err}
			}
			return nil, ix.fail(ctx, ref, err)
		}
		for i := range chunks {
			chunks[i].Embedding = vectors[i]
		}
	}

	if err := ix.complete(ctx, ref, chunks, content.Metadata); err != nil {
		return nil, err
	}

	result.ChunkCount = len(chunks)
	result.Duration = ix.now().Sub(started)
	ix.log.Info("content indexed",
		"ref", ref.String(),
		"chunks", result.ChunkCount,
		"strategy", result.Strategy,
		"duration", result.Duration)
	return result, nil
}

// complete replaces the stored chunk set and marks the content completed.
func (ix *Indexer) complete(ctx context.Context, ref domain.ContentRef, chunks []domain.Chunk, metadata map[string]any) error {
	var err error
	if len(chunks) == 0 {
		err = ix.chunks.Delete(ctx, ref)
	} else {
		err = ix.chunks.Upsert(ctx, ref, chunks, metadata)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrStorage) {
			err = &domain.StorageError{Ref: ref, Op: "replace chunks", Err: err}
		}
		return ix.fail(ctx, ref, err)
	}

	processed := ix.now()
	status := domain.ContentStatus{
		Ref:         ref,
		Status:      domain.StatusCompleted,
		ChunkCount:  len(chunks),
		ProcessedAt: &processed,
	}
	if err := ix.content.SetStatus(ctx, status); err != nil {
		return &domain.StorageError{Ref: ref, Op: "set status", Err: err}
	}
	return nil
}

// fail records the failure on the content record and returns err.
func (ix *Indexer) fail(ctx context.Context, ref domain.ContentRef, err error) error {
	ix.log.Warn("content processing failed", "ref", ref.String(), "error", err)
	ix.writeStatus(ctx, domain.ContentStatus{Ref: ref, Status: domain.StatusFailed, Message: err.Error()})
	return err
}

// writeStatus is a best-effort status update.
func (ix *Indexer) writeStatus(ctx context.Context, status domain.ContentStatus) {
	if err := ix.content.SetStatus(ctx, status); err != nil {
		ix.log.Warn("status write failed", "ref", status.Ref.String(), "status", status.Status.String(), "error", err)
	}
}

// Enqueue schedules content for background indexing and marks it pending.
func (ix *Indexer) Enqueue(ctx context.Context, ref domain.ContentRef, priority int, metadata map[string]any) (*domain.QueueEntry, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	entry, err := ix.queue.Enqueue(ctx, ref, priority, metadata)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", ref, err)
	}
	if entry.Status == domain.QueueStatusPending {
		ix.writeStatus(ctx, domain.ContentStatus{Ref: ref, Status: domain.StatusPending})
	}
	return entry, nil
}

// Remove deletes all chunks of the content and resets its status.
// A record that no longer exists is not an error.
func (ix *Indexer) Remove(ctx context.Context, ref domain.ContentRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if err := ix.chunks.Delete(ctx, ref); err != nil {
		return fmt.Errorf("remove %s: %w", ref, err)
	}
	err := ix.content.SetStatus(ctx, domain.ContentStatus{Ref: ref, Status: domain.StatusPending})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("reset status %s: %w", ref, err)
	}
	return nil
}

// Status reports the content status, queue entry and stored chunk count.
// Returns domain.ErrNotFound if the content was never processed or queued.
func (ix *Indexer) Status(ctx context.Context, ref domain.ContentRef) (*driving.IndexStatus, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	out := &driving.IndexStatus{}

	status, err := ix.content.GetStatus(ctx, ref)
	switch {
	case err == nil:
		out.Content = status
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("get status %s: %w", ref, err)
	}

	entry, err := ix.queue.Get(ctx, ref)
	switch {
	case err == nil:
		out.Queue = entry
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("get queue entry %s: %w", ref, err)
	}

	out.Chunks, err = ix.chunks.Count(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("count chunks %s: %w", ref, err)
	}

	if out.Content == nil && out.Queue == nil && out.Chunks == 0 {
		return nil, domain.ErrNotFound
	}
	return out, nil
}
