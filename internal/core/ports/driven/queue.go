package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

// ProcessingQueue is a durable work list of content to index.
// Claims are safe under concurrent workers.
type ProcessingQueue interface {
	// Enqueue creates or resets the entry for the content.
	// Completed and failed entries return to pending. An entry that is
	// currently processing keeps its status and is flagged Rerun; only
	// priority and metadata change.
	Enqueue(ctx context.Context, ref domain.ContentRef, priority int, metadata map[string]any) (*domain.QueueEntry, error)

	// DequeueNext atomically claims the highest-priority, oldest pending entry
	// and marks it processing. Returns nil and no error when none is pending.
	DequeueNext(ctx context.Context) (*domain.QueueEntry, error)

	// MarkCompleted moves a processing entry to completed. An entry
	// flagged Rerun returns to pending instead; entry reflects the outcome.
	MarkCompleted(ctx context.Context, entry *domain.QueueEntry) error

	// MarkFailed moves a processing entry to failed with the error message,
	// or back to pending when it is flagged Rerun.
	MarkFailed(ctx context.Context, entry *domain.QueueEntry, message string) error

	// Get returns the entry for the content.
	// Returns domain.ErrNotFound if the content was never enqueued.
	Get(ctx context.Context, ref domain.ContentRef) (*domain.QueueEntry, error)

	// List returns entries in the given status, oldest first.
	// An empty status lists all entries.
	List(ctx context.Context, status domain.QueueStatus, limit int) ([]domain.QueueEntry, error)

	// Stats counts entries by status.
	Stats(ctx context.Context) (domain.QueueStats, error)

	// RequeueFailed resets every failed entry to pending.
	// Returns the number of entries reset.
	RequeueFailed(ctx context.Context) (int, error)

	// PurgeCompleted deletes completed entries finished before the cutoff.
	// Returns the number of entries deleted.
	PurgeCompleted(ctx context.Context, before time.Time) (int, error)
}
