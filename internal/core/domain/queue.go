package domain

import "time"

// QueueStatus is the lifecycle state of a queue entry.
type QueueStatus string

// Queue entry states.
//
// pending -> processing -> completed | failed.
// failed -> pending only through an explicit re-enqueue.
const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s QueueStatus) IsValid() bool {
	switch s {
	case QueueStatusPending, QueueStatusProcessing, QueueStatusCompleted, QueueStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for completed and failed.
func (s QueueStatus) IsTerminal() bool {
	return s == QueueStatusCompleted || s == QueueStatusFailed
}

// String returns the string representation.
func (s QueueStatus) String() string {
	return string(s)
}

// QueueEntry is a unit of background indexing work.
// Entries are unique on (ContentID, ContentType).
type QueueEntry struct {
	// ID is the unique identifier for the entry.
	ID string

	// ContentID identifies the content to process.
	ContentID string

	// ContentType is the kind of content to process.
	ContentType ContentType

	// Status is the lifecycle state.
	Status QueueStatus

	// Priority orders claims; higher values are claimed first.
	Priority int

	// Metadata carries caller-supplied context for the job.
	Metadata map[string]any

	// ErrorMessage is set when Status is failed.
	ErrorMessage string

	// CreatedAt is when the entry was (re-)enqueued.
	CreatedAt time.Time

	// StartedAt is when a worker claimed the entry.
	StartedAt *time.Time

	// CompletedAt is when the entry reached a terminal state.
	CompletedAt *time.Time

	// Rerun is set when the content was enqueued again while processing.
	// Finishing such an entry returns it to pending instead.
	Rerun bool
}

// Ref returns the content reference for the entry.
func (e QueueEntry) Ref() ContentRef {
	return ContentRef{ID: e.ContentID, Type: e.ContentType}
}

// QueueStats counts entries by status.
type QueueStats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// Total returns the number of entries across all states.
func (s QueueStats) Total() int {
	return s.Pending + s.Processing + s.Completed + s.Failed
}
