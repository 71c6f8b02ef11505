package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/core/ports/driving"
	"github.com/custodia-labs/coursedex/internal/logger"
)

// Ensure QueueService implements the interface.
var _ driving.QueueService = (*QueueService)(nil)

// QueueService performs queue maintenance.
type QueueService struct {
	queue   driven.ProcessingQueue
	content driven.ContentRepository
	now     func() time.Time
}

// NewQueueService creates a new queue service.
func NewQueueService(queue driven.ProcessingQueue, content driven.ContentRepository) *QueueService {
	return &QueueService{queue: queue, content: content, now: time.Now}
}

// Stats counts entries by status.
func (s *QueueService) Stats(ctx context.Context) (domain.QueueStats, error) {
	return s.queue.Stats(ctx)
}

// List returns entries in the given status, oldest first.
func (s *QueueService) List(ctx context.Context, status domain.QueueStatus, limit int) ([]domain.QueueEntry, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: queue status %q", domain.ErrInvalidInput, status)
	}
	return s.queue.List(ctx, status, limit)
}

// RetryFailed returns failed entries to pending and resets the status of
// their content records.
func (s *QueueService) RetryFailed(ctx context.Context) (int, error) {
	failed, err := s.queue.List(ctx, domain.QueueStatusFailed, 0)
	if err != nil {
		return 0, fmt.Errorf("list failed entries: %w", err)
	}
	n, err := s.queue.RequeueFailed(ctx)
	if err != nil {
		return 0, fmt.Errorf("requeue failed entries: %w", err)
	}

	log := logger.Component("queue")
	for _, entry := range failed {
		status := domain.ContentStatus{Ref: entry.Ref(), Status: domain.StatusPending}
		if err := s.content.SetStatus(ctx, status); err != nil {
			log.Warn("status reset failed", "ref", entry.Ref().String(), "error", err)
		}
	}
	log.Info("failed entries requeued", "count", n)
	return n, nil
}

// Purge deletes completed entries older than olderThan.
func (s *QueueService) Purge(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan < 0 {
		return 0, fmt.Errorf("%w: negative age %s", domain.ErrInvalidInput, olderThan)
	}
	n, err := s.queue.PurgeCompleted(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("purge completed entries: %w", err)
	}
	logger.Component("queue").Info("completed entries purged", "count", n, "older_than", olderThan)
	return n, nil
}
