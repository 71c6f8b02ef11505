package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown content type or file format.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrDimensionMismatch indicates a vector does not match the configured width.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNoTranscript indicates no transcript could be found or derived.
	ErrNoTranscript = errors.New("no transcript available")
)

// Pipeline stage errors. Each typed error below matches its sentinel
// through errors.Is, so callers can test the stage without a type switch.
var (
	// ErrExtraction marks an unreadable or unsupported source, or a fetch failure.
	ErrExtraction = errors.New("extraction failed")

	// ErrChunking marks a chunker failure. Chunkers are pure functions over
	// extracted text, so this indicates a bug.
	ErrChunking = errors.New("chunking failed")

	// ErrEmbedding marks a backend timeout or rejection after retries.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStorage marks a constraint violation or connection failure.
	ErrStorage = errors.New("storage failed")
)

// ExtractionError reports a failure to produce normalised content.
type ExtractionError struct {
	Ref    ContentRef
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return stageMessage("extract", e.Ref, e.Reason, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExtractionError) Unwrap() error { return e.Err }

// Is matches ErrExtraction.
func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// ChunkingError reports a chunker failure.
type ChunkingError struct {
	Ref    ContentRef
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ChunkingError) Error() string {
	return stageMessage("chunk", e.Ref, e.Reason, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ChunkingError) Unwrap() error { return e.Err }

// Is matches ErrChunking.
func (e *ChunkingError) Is(target error) bool { return target == ErrChunking }

// EmbeddingError reports an embedding backend failure after retries.
type EmbeddingError struct {
	Ref      ContentRef
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *EmbeddingError) Error() string {
	reason := ""
	if e.Attempts > 0 {
		reason = fmt.Sprintf("after %d attempts", e.Attempts)
	}
	return stageMessage("embed", e.Ref, reason, e.Err)
}

// Unwrap returns the underlying cause.
func (e *EmbeddingError) Unwrap() error { return e.Err }

// Is matches ErrEmbedding.
func (e *EmbeddingError) Is(target error) bool { return target == ErrEmbedding }

// StorageError reports a chunk store, queue or record store failure.
type StorageError struct {
	Ref ContentRef
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return stageMessage("store", e.Ref, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error { return e.Err }

// Is matches ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func stageMessage(stage string, ref ContentRef, reason string, err error) string {
	msg := stage
	if ref.ID != "" {
		msg += " " + ref.String()
	}
	if reason != "" {
		msg += ": " + reason
	}
	if err != nil {
		msg += ": " + err.Error()
	}
	return msg
}
