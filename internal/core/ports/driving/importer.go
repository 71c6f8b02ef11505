package driving

import (
	"context"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

// Importer registers content records and their files.
type Importer interface {
	// Import uploads local files, saves the records and optionally
	// enqueues every imported item.
	Import(ctx context.Context, manifest *domain.ImportManifest, opts ImportOptions) (*ImportResult, error)
}

// ImportOptions controls what happens after records are saved.
type ImportOptions struct {
	// Enqueue schedules each imported item for background indexing.
	Enqueue bool

	// Priority is the queue priority of enqueued items.
	Priority int
}

// ImportResult lists what was imported.
type ImportResult struct {
	Refs     []domain.ContentRef
	Uploaded int
	Enqueued int
}
