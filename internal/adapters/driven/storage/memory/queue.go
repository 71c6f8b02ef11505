package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// Ensure Queue implements the interface.
var _ driven.ProcessingQueue = (*Queue)(nil)

// Queue is an in-memory implementation of driven.ProcessingQueue.
// A single mutex makes every claim atomic.
type Queue struct {
	mu      sync.Mutex
	entries map[domain.ContentRef]*queued
	seq     int64
	now     func() time.Time
}

type queued struct {
	entry domain.QueueEntry
	seq   int64
}

// NewQueue creates a new in-memory processing queue.
func NewQueue() *Queue {
	return &Queue{
		entries: make(map[domain.ContentRef]*queued),
		now:     time.Now,
	}
}

// Enqueue creates or resets the entry for the content.
func (q *Queue) Enqueue(_ context.Context, ref domain.ContentRef, priority int, metadata map[string]any) (*domain.QueueEntry, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	q.seq++
	item, ok := q.entries[ref]
	if !ok {
		item = &queued{entry: domain.QueueEntry{
			ID:          uuid.New().String(),
			ContentID:   ref.ID,
			ContentType: ref.Type,
		}}
		q.entries[ref] = item
	}

	item.entry.Priority = priority
	item.entry.Metadata = copyMap(metadata)
	if item.entry.Status == domain.QueueStatusProcessing {
		item.entry.Rerun = true
	} else {
		item.entry.Status = domain.QueueStatusPending
		item.entry.ErrorMessage = ""
		item.entry.CreatedAt = now
		item.entry.StartedAt = nil
		item.entry.CompletedAt = nil
		item.seq = q.seq
	}

	out := item.entry
	return &out, nil
}

// DequeueNext claims the highest-priority, oldest pending entry.
func (q *Queue) DequeueNext(_ context.Context) (*domain.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var best *queued
	for _, item := range q.entries {
		if item.entry.Status != domain.QueueStatusPending {
			continue
		}
		if best == nil || before(item, best) {
			best = item
		}
	}
	if best == nil {
		return nil, nil
	}

	now := q.now()
	best.entry.Status = domain.QueueStatusProcessing
	best.entry.StartedAt = &now
	out := best.entry
	return &out, nil
}

// MarkCompleted moves an entry to completed.
func (q *Queue) MarkCompleted(_ context.Context, entry *domain.QueueEntry) error {
	return q.finish(entry, domain.QueueStatusCompleted, "")
}

// MarkFailed moves an entry to failed with the error message.
func (q *Queue) MarkFailed(_ context.Context, entry *domain.QueueEntry, message string) error {
	return q.finish(entry, domain.QueueStatusFailed, message)
}

func (q *Queue) finish(entry *domain.QueueEntry, status domain.QueueStatus, message string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.entries[entry.Ref()]
	if !ok || item.entry.ID != entry.ID {
		return domain.ErrNotFound
	}
	now := q.now()
	if item.entry.Rerun {
		q.seq++
		item.seq = q.seq
		item.entry.Status = domain.QueueStatusPending
		item.entry.ErrorMessage = ""
		item.entry.CreatedAt = now
		item.entry.StartedAt = nil
		item.entry.CompletedAt = nil
		item.entry.Rerun = false
		*entry = item.entry
		return nil
	}
	item.entry.Status = status
	item.entry.ErrorMessage = message
	item.entry.CompletedAt = &now

	entry.Status = status
	entry.ErrorMessage = message
	entry.CompletedAt = &now
	return nil
}

// Get returns the entry for the content.
func (q *Queue) Get(_ context.Context, ref domain.ContentRef) (*domain.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.entries[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := item.entry
	return &out, nil
}

// List returns entries in the given status, oldest first.
func (q *Queue) List(_ context.Context, status domain.QueueStatus, limit int) ([]domain.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var items []*queued
	for _, item := range q.entries {
		if status == "" || item.entry.Status == status {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].seq < items[j].seq })

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]domain.QueueEntry, len(items))
	for i, item := range items {
		out[i] = item.entry
	}
	return out, nil
}

// Stats counts entries by status.
func (q *Queue) Stats(_ context.Context) (domain.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var stats domain.QueueStats
	for _, item := range q.entries {
		switch item.entry.Status {
		case domain.QueueStatusPending:
			stats.Pending++
		case domain.QueueStatusProcessing:
			stats.Processing++
		case domain.QueueStatusCompleted:
			stats.Completed++
		case domain.QueueStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// RequeueFailed resets every failed entry to pending.
func (q *Queue) RequeueFailed(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	n := 0
	for _, item := range q.entries {
		if item.entry.Status != domain.QueueStatusFailed {
			continue
		}
		q.seq++
		item.seq = q.seq
		item.entry.Status = domain.QueueStatusPending
		item.entry.ErrorMessage = ""
		item.entry.CreatedAt = now
		item.entry.StartedAt = nil
		item.entry.CompletedAt = nil
		n++
	}
	return n, nil
}

// PurgeCompleted deletes completed entries finished before the cutoff.
func (q *Queue) PurgeCompleted(_ context.Context, cutoff time.Time) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for ref, item := range q.entries {
		if item.entry.Status == domain.QueueStatusCompleted &&
			item.entry.CompletedAt != nil && item.entry.CompletedAt.Before(cutoff) {
			delete(q.entries, ref)
			n++
		}
	}
	return n, nil
}

// before orders pending entries: higher priority first, then oldest.
func before(a, b *queued) bool {
	if a.entry.Priority != b.entry.Priority {
		return a.entry.Priority > b.entry.Priority
	}
	if !a.entry.CreatedAt.Equal(b.entry.CreatedAt) {
		return a.entry.CreatedAt.Before(b.entry.CreatedAt)
	}
	return a.seq < b.seq
}
