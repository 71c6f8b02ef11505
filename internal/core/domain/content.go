package domain

import (
	"fmt"
	"strings"
)

// ContentType identifies the kind of learning content being indexed.
type ContentType string

// Supported content types.
const (
	// ContentTypeBook is an uploaded book file (PDF, EPUB, DOCX, plain text).
	ContentTypeBook ContentType = "book"

	// ContentTypeVideo is a video with a transcript.
	ContentTypeVideo ContentType = "video"

	// ContentTypeCourse is structured course text made of lessons.
	ContentTypeCourse ContentType = "course"
)

// AllContentTypes lists every supported content type in a stable order.
func AllContentTypes() []ContentType {
	return []ContentType{ContentTypeBook, ContentTypeVideo, ContentTypeCourse}
}

// IsValid returns true if the content type is recognised.
func (t ContentType) IsValid() bool {
	switch t {
	case ContentTypeBook, ContentTypeVideo, ContentTypeCourse:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t ContentType) String() string {
	return string(t)
}

// ParseContentType converts a user-supplied string into a ContentType.
func ParseContentType(s string) (ContentType, error) {
	t := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: content type %q", ErrUnsupportedType, s)
	}
	return t, nil
}

// ContentRef identifies a content record owned outside this core.
// The core only reads content and writes derived artifacts.
type ContentRef struct {
	// ID is the external content identifier.
	ID string

	// Type is the kind of content.
	Type ContentType
}

// String returns a compact "type/id" form used in logs.
func (r ContentRef) String() string {
	return string(r.Type) + "/" + r.ID
}

// Validate checks that the reference is usable.
func (r ContentRef) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: empty content id", ErrInvalidInput)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: content type %q", ErrUnsupportedType, r.Type)
	}
	return nil
}

// TimedSegment is a timestamped fragment of a video transcript.
// Start and End are offsets in seconds from the beginning of the video.
type TimedSegment struct {
	Start float64 `json:"start" toml:"start"`
	End   float64 `json:"end" toml:"end"`
	Text  string  `json:"text" toml:"text"`
}

// Duration returns the segment length in seconds.
func (s TimedSegment) Duration() float64 {
	return s.End - s.Start
}

// Chapter is a titled section of a video.
// End may be zero when the chapter runs until the next one starts.
type Chapter struct {
	Title string  `json:"title" toml:"title"`
	Start float64 `json:"start" toml:"start"`
	End   float64 `json:"end,omitempty" toml:"end"`
}

// SkipReasonNoTranscript marks a video that has no transcript available.
const SkipReasonNoTranscript = "no_transcript"

// ExtractedContent is the normalised output of an extractor.
// Exactly one of Text or Segments is populated for non-empty content.
// It is transient and never persisted.
type ExtractedContent struct {
	// Text is the full normalised text for untimed content.
	Text string

	// Segments is the ordered timed transcript for videos.
	Segments []TimedSegment

	// Chapters are optional video chapters, ordered by start time.
	Chapters []Chapter

	// Metadata carries content-level attributes (title, author, owner_id, ...).
	Metadata map[string]any

	// SkipReason is set when the extractor found nothing to index
	// for a legitimate reason (e.g. no transcript).
	SkipReason string
}

// IsEmpty reports whether there is nothing to chunk.
func (c *ExtractedContent) IsEmpty() bool {
	if c == nil {
		return true
	}
	if len(c.Segments) > 0 {
		return false
	}
	return strings.TrimSpace(c.Text) == ""
}

// IsTimed reports whether the content carries timestamped segments.
func (c *ExtractedContent) IsTimed() bool {
	return c != nil && len(c.Segments) > 0
}

// TotalDuration returns the span covered by the segments in seconds.
func (c *ExtractedContent) TotalDuration() float64 {
	if !c.IsTimed() {
		return 0
	}
	first := c.Segments[0].Start
	last := c.Segments[0].End
	for _, seg := range c.Segments {
		if seg.End > last {
			last = seg.End
		}
	}
	return last - first
}
