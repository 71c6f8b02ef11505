package domain

import "time"

// ProcessingStatus is the denormalised indexing status on a content record.
type ProcessingStatus string

// Processing states written back to content records.
const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// String returns the string representation.
func (s ProcessingStatus) String() string {
	return string(s)
}

// ContentStatus is the indexing status of one content record,
// polled by external callers.
type ContentStatus struct {
	// Ref identifies the content.
	Ref ContentRef

	// Status is the current processing state.
	Status ProcessingStatus

	// Message holds the error text when Status is failed.
	Message string

	// ChunkCount is the number of chunks produced by the last successful run.
	ChunkCount int

	// ProcessedAt is when the last run finished successfully.
	ProcessedAt *time.Time

	// UpdatedAt is when the status last changed.
	UpdatedAt time.Time
}
