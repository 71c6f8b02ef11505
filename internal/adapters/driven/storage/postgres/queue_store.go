package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// Ensure queueStore implements the interface.
var _ driven.ProcessingQueue = (*queueStore)(nil)

// queueStore wraps Store to implement driven.ProcessingQueue.
type queueStore struct {
	store *Store
}

const queueColumns = `id, content_id, content_type, status, priority, metadata,
	error_message, created_at, started_at, completed_at, rerun`

// Enqueue inserts the entry or resets an existing one. An entry that is
// processing keeps its state and is flagged to rerun; only priority and
// metadata are replaced.
func (q *queueStore) Enqueue(ctx context.Context, ref domain.ContentRef, priority int, metadata map[string]any) (*domain.QueueEntry, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	meta, err := marshalJSON(metadata, "{}")
	if err != nil {
		return nil, fmt.Errorf("marshalling queue metadata: %w", err)
	}

	row := q.store.pool.QueryRow(ctx, `
		INSERT INTO processing_queue AS q (id, content_id, content_type, status, priority, metadata, error_message, created_at)
		VALUES ($1, $2, $3, 'pending', $4, $5, '', $6)
		ON CONFLICT (content_id, content_type) DO UPDATE SET
			priority      = EXCLUDED.priority,
			metadata      = EXCLUDED.metadata,
			status        = CASE WHEN q.status = 'processing' THEN q.status ELSE 'pending' END,
			error_message = CASE WHEN q.status = 'processing' THEN q.error_message ELSE '' END,
			created_at    = CASE WHEN q.status = 'processing' THEN q.created_at ELSE EXCLUDED.created_at END,
			started_at    = CASE WHEN q.status = 'processing' THEN q.started_at ELSE NULL END,
			completed_at  = CASE WHEN q.status = 'processing' THEN q.completed_at ELSE NULL END,
			rerun         = q.status = 'processing'
		RETURNING `+queueColumns,
		uuid.New().String(), ref.ID, string(ref.Type), priority, meta, q.store.now())

	entry, err := scanEntry(row)
	if err != nil {
		return nil, &domain.StorageError{Ref: ref, Op: "enqueue", Err: err}
	}
	return entry, nil
}

// DequeueNext claims the next pending entry. SKIP LOCKED lets concurrent
// workers pass over a row another transaction is claiming.
func (q *queueStore) DequeueNext(ctx context.Context) (*domain.QueueEntry, error) {
	row := q.store.pool.QueryRow(ctx, `
		UPDATE processing_queue SET status = 'processing', started_at = $1
		WHERE id = (
			SELECT id FROM processing_queue
			WHERE status = 'pending'
			ORDER BY priority DESC, created_at, seq
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+queueColumns, q.store.now())

	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "dequeue", Err: err}
	}
	return entry, nil
}

// MarkCompleted moves an entry to completed.
func (q *queueStore) MarkCompleted(ctx context.Context, entry *domain.QueueEntry) error {
	return q.finish(ctx, entry, domain.QueueStatusCompleted, "")
}

// MarkFailed moves an entry to failed with the error message.
func (q *queueStore) MarkFailed(ctx context.Context, entry *domain.QueueEntry, message string) error {
	return q.finish(ctx, entry, domain.QueueStatusFailed, message)
}

// finish records the outcome. An entry flagged to rerun goes back to
// pending instead.
func (q *queueStore) finish(ctx context.Context, entry *domain.QueueEntry, status domain.QueueStatus, message string) error {
	now := q.store.now()
	var final string
	err := q.store.pool.QueryRow(ctx, `
		UPDATE processing_queue SET
			status        = CASE WHEN rerun THEN 'pending' ELSE $1::text END,
			error_message = CASE WHEN rerun THEN '' ELSE $2::text END,
			created_at    = CASE WHEN rerun THEN $3::timestamptz ELSE created_at END,
			started_at    = CASE WHEN rerun THEN NULL ELSE started_at END,
			completed_at  = CASE WHEN rerun THEN NULL ELSE $3::timestamptz END,
			rerun         = FALSE
		WHERE id = $4
		RETURNING status`, string(status), message, now, entry.ID).Scan(&final)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return &domain.StorageError{Ref: entry.Ref(), Op: "mark " + string(status), Err: err}
	}

	entry.Rerun = false
	if domain.QueueStatus(final) == domain.QueueStatusPending {
		entry.Status = domain.QueueStatusPending
		entry.ErrorMessage = ""
		entry.CreatedAt = now
		entry.StartedAt = nil
		entry.CompletedAt = nil
		return nil
	}
	entry.Status = status
	entry.ErrorMessage = message
	entry.CompletedAt = &now
	return nil
}

// Get returns the entry for the content.
func (q *queueStore) Get(ctx context.Context, ref domain.ContentRef) (*domain.QueueEntry, error) {
	row := q.store.pool.QueryRow(ctx,
		"SELECT "+queueColumns+" FROM processing_queue WHERE content_id = $1 AND content_type = $2",
		ref.ID, string(ref.Type))
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, &domain.StorageError{Ref: ref, Op: "get queue entry", Err: err}
	}
	return entry, nil
}

// List returns entries in the given status, oldest first.
func (q *queueStore) List(ctx context.Context, status domain.QueueStatus, limit int) ([]domain.QueueEntry, error) {
	sql := "SELECT " + queueColumns + " FROM processing_queue"
	var args []any
	if status != "" {
		args = append(args, string(status))
		sql += " WHERE status = $1"
	}
	sql += " ORDER BY created_at, seq"
	if limit > 0 {
		args = append(args, limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := q.store.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "list queue", Err: err}
	}
	defer rows.Close()

	var out []domain.QueueEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "list queue", Err: err}
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list queue", Err: err}
	}
	return out, nil
}

// Stats counts entries by status.
func (q *queueStore) Stats(ctx context.Context) (domain.QueueStats, error) {
	var stats domain.QueueStats
	err := q.store.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM processing_queue`).Scan(&stats.Pending, &stats.Processing, &stats.Completed, &stats.Failed)
	if err != nil {
		return stats, &domain.StorageError{Op: "queue stats", Err: err}
	}
	return stats, nil
}

// RequeueFailed resets every failed entry to pending.
func (q *queueStore) RequeueFailed(ctx context.Context) (int, error) {
	tag, err := q.store.pool.Exec(ctx, `
		UPDATE processing_queue
		SET status = 'pending', error_message = '', created_at = $1, started_at = NULL, completed_at = NULL
		WHERE status = 'failed'`, q.store.now())
	if err != nil {
		return 0, &domain.StorageError{Op: "requeue failed", Err: err}
	}
	return int(tag.RowsAffected()), nil
}

// PurgeCompleted deletes completed entries finished before the cutoff.
func (q *queueStore) PurgeCompleted(ctx context.Context, before time.Time) (int, error) {
	tag, err := q.store.pool.Exec(ctx,
		"DELETE FROM processing_queue WHERE status = 'completed' AND completed_at < $1", before)
	if err != nil {
		return 0, &domain.StorageError{Op: "purge completed", Err: err}
	}
	return int(tag.RowsAffected()), nil
}

func scanEntry(row pgx.Row) (*domain.QueueEntry, error) {
	var (
		e                   domain.QueueEntry
		contentType, status string
		meta                []byte
	)
	if err := row.Scan(&e.ID, &e.ContentID, &contentType, &status, &e.Priority, &meta,
		&e.ErrorMessage, &e.CreatedAt, &e.StartedAt, &e.CompletedAt, &e.Rerun); err != nil {
		return nil, err
	}
	e.ContentType = domain.ContentType(contentType)
	e.Status = domain.QueueStatus(status)

	m, err := unmarshalMap(meta)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling queue metadata: %w", err)
	}
	e.Metadata = m
	return &e, nil
}
