package driven

import (
	"context"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

// ContentRepository gives the core access to externally owned content records.
// The core reads records and writes only status fields and transcript caches.
type ContentRepository interface {
	// GetBook retrieves a book record. Returns domain.ErrNotFound if missing.
	GetBook(ctx context.Context, id string) (*domain.Book, error)

	// GetVideo retrieves a video record. Returns domain.ErrNotFound if missing.
	GetVideo(ctx context.Context, id string) (*domain.Video, error)

	// GetCourse retrieves a course record with its lessons.
	// Returns domain.ErrNotFound if missing.
	GetCourse(ctx context.Context, id string) (*domain.Course, error)

	// CacheTranscript stores a derived transcript on the video record.
	CacheTranscript(ctx context.Context, videoID string, segments []domain.TimedSegment) error

	// SetStatus writes the processing status onto the content record.
	SetStatus(ctx context.Context, status domain.ContentStatus) error

	// GetStatus reads the processing status of a content record.
	// Returns domain.ErrNotFound if the content was never processed.
	GetStatus(ctx context.Context, ref domain.ContentRef) (*domain.ContentStatus, error)
}

// ContentWriter registers content records. It is used by the import
// command and tests; the pipeline itself never calls it.
type ContentWriter interface {
	SaveBook(ctx context.Context, book *domain.Book) error
	SaveVideo(ctx context.Context, video *domain.Video) error
	SaveCourse(ctx context.Context, course *domain.Course) error
}
