package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

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

	row := q.store.db.QueryRowContext(ctx, `
		INSERT INTO processing_queue (id, content_id, content_type, status, priority, metadata, error_message, created_at)
		VALUES (?, ?, ?, 'pending', ?, ?, '', ?)
		ON CONFLICT(content_id, content_type) DO UPDATE SET
			priority      = excluded.priority,
			metadata      = excluded.metadata,
			status        = CASE WHEN status = 'processing' THEN status ELSE 'pending' END,
			error_message = CASE WHEN status = 'processing' THEN error_message ELSE '' END,
			created_at    = CASE WHEN status = 'processing' THEN created_at ELSE excluded.created_at END,
			started_at    = CASE WHEN status = 'processing' THEN started_at ELSE NULL END,
			completed_at  = CASE WHEN status = 'processing' THEN completed_at ELSE NULL END,
			rerun         = CASE WHEN status = 'processing' THEN 1 ELSE 0 END
		RETURNING `+queueColumns,
		uuid.New().String(), ref.ID, string(ref.Type), priority, meta, q.store.now().UnixNano())

	entry, err := scanEntry(row)
	if err != nil {
		return nil, &domain.StorageError{Ref: ref, Op: "enqueue", Err: err}
	}
	return entry, nil
}

// DequeueNext claims the next pending entry with a single conditional
// UPDATE, so concurrent workers never claim the same row.
func (q *queueStore) DequeueNext(ctx context.Context) (*domain.QueueEntry, error) {
	row := q.store.db.QueryRowContext(ctx, `
		UPDATE processing_queue SET status = 'processing', started_at = ?
		WHERE id = (
			SELECT id FROM processing_queue
			WHERE status = 'pending'
			ORDER BY priority DESC, created_at, rowid
			LIMIT 1
		) AND status = 'pending'
		RETURNING `+queueColumns, q.store.now().UnixNano())

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
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
	row := q.store.db.QueryRowContext(ctx, `
		UPDATE processing_queue SET
			status        = CASE WHEN rerun = 1 THEN 'pending' ELSE ? END,
			error_message = CASE WHEN rerun = 1 THEN '' ELSE ? END,
			created_at    = CASE WHEN rerun = 1 THEN ? ELSE created_at END,
			started_at    = CASE WHEN rerun = 1 THEN NULL ELSE started_at END,
			completed_at  = CASE WHEN rerun = 1 THEN NULL ELSE ? END,
			rerun         = 0
		WHERE id = ?
		RETURNING status`, string(status), message, now.UnixNano(), now.UnixNano(), entry.ID)

	var final string
	if err := row.Scan(&final); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
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
	row := q.store.db.QueryRowContext(ctx,
		"SELECT "+queueColumns+" FROM processing_queue WHERE content_id = ? AND content_type = ?",
		ref.ID, string(ref.Type))
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, &domain.StorageError{Ref: ref, Op: "get queue entry", Err: err}
	}
	return entry, nil
}

// List returns entries in the given status, oldest first.
func (q *queueStore) List(ctx context.Context, status domain.QueueStatus, limit int) ([]domain.QueueEntry, error) {
	query := "SELECT " + queueColumns + " FROM processing_queue"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at, rowid"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.store.db.QueryContext(ctx, query, args...)
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
	rows, err := q.store.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM processing_queue GROUP BY status")
	if err != nil {
		return stats, &domain.StorageError{Op: "queue stats", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats, &domain.StorageError{Op: "queue stats", Err: err}
		}
		switch domain.QueueStatus(status) {
		case domain.QueueStatusPending:
			stats.Pending = n
		case domain.QueueStatusProcessing:
			stats.Processing = n
		case domain.QueueStatusCompleted:
			stats.Completed = n
		case domain.QueueStatusFailed:
			stats.Failed = n
		}
	}
	return stats, rows.Err()
}

// RequeueFailed resets every failed entry to pending.
func (q *queueStore) RequeueFailed(ctx context.Context) (int, error) {
	result, err := q.store.db.ExecContext(ctx, `
		UPDATE processing_queue
		SET status = 'pending', error_message = '', created_at = ?, started_at = NULL, completed_at = NULL
		WHERE status = 'failed'`, q.store.now().UnixNano())
	if err != nil {
		return 0, &domain.StorageError{Op: "requeue failed", Err: err}
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// PurgeCompleted deletes completed entries finished before the cutoff.
func (q *queueStore) PurgeCompleted(ctx context.Context, before time.Time) (int, error) {
	result, err := q.store.db.ExecContext(ctx,
		"DELETE FROM processing_queue WHERE status = 'completed' AND completed_at < ?",
		before.UnixNano())
	if err != nil {
		return 0, &domain.StorageError{Op: "purge completed", Err: err}
	}
	n, err := result.RowsAffected()
	return int(n), err
}

func scanEntry(row rowScanner) (*domain.QueueEntry, error) {
	var (
		e                   domain.QueueEntry
		contentType, status string
		meta                string
		created             int64
		started, completed  sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.ContentID, &contentType, &status, &e.Priority, &meta,
		&e.ErrorMessage, &created, &started, &completed, &e.Rerun); err != nil {
		return nil, err
	}
	e.ContentType = domain.ContentType(contentType)
	e.Status = domain.QueueStatus(status)
	e.CreatedAt = time.Unix(0, created)
	e.StartedAt = fromNanos(started)
	e.CompletedAt = fromNanos(completed)

	m, err := unmarshalMap(meta)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling queue metadata: %w", err)
	}
	e.Metadata = m
	return &e, nil
}
