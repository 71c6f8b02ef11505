package driven

import (
	"context"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

// Extractor produces normalised content for one content type.
type Extractor interface {
	// ContentType returns the content type this extractor handles.
	ContentType() domain.ContentType

	// Extract loads the content record and returns normalised text or
	// timed segments plus content-level metadata.
	// Failures are returned as *domain.ExtractionError. A legitimate absence
	// of content is returned as an empty result with SkipReason set.
	Extract(ctx context.Context, contentID string) (*domain.ExtractedContent, error)
}

// ExtractorRegistry selects the extractor for a content type.
type ExtractorRegistry interface {
	// Get returns the extractor for the content type.
	// Returns domain.ErrUnsupportedType if none is registered.
	Get(contentType domain.ContentType) (Extractor, error)
}

// TranscriptDeriver derives a timestamped transcript for a video on demand.
// This is an optional service.
type TranscriptDeriver interface {
	// Derive returns transcript segments for the video.
	// Returns domain.ErrNoTranscript when nothing can be derived.
	Derive(ctx context.Context, video *domain.Video) ([]domain.TimedSegment, error)
}
