package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

// QueueService exposes processing queue maintenance to operators.
type QueueService interface {
	// Stats counts entries by status.
	Stats(ctx context.Context) (domain.QueueStats, error)

	// List returns entries in the given status, oldest first.
	// An empty status lists all entries.
	List(ctx context.Context, status domain.QueueStatus, limit int) ([]domain.QueueEntry, error)

	// RetryFailed returns every failed entry to pending.
	RetryFailed(ctx context.Context) (int, error)

	// Purge deletes completed entries older than the given age.
	Purge(ctx context.Context, olderThan time.Duration) (int, error)
}
