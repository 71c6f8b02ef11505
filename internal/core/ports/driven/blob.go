package driven

import "context"

// BlobStorage is a provider-agnostic store for uploaded files.
// Implementations include the local filesystem and S3-compatible buckets.
type BlobStorage interface {
	// Download returns the bytes stored at path.
	// Returns domain.ErrNotFound if nothing is stored there.
	Download(ctx context.Context, path string) ([]byte, error)

	// Upload stores data at path, replacing existing content.
	Upload(ctx context.Context, data []byte, path string) error
}
