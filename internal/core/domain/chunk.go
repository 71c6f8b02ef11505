package domain

// Chunk represents a searchable unit within a piece of content.
// Content is split into chunks for granular retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// ContentID links to the owning content record.
	ContentID string

	// ContentType is the kind of the owning content.
	ContentType ContentType

	// ChunkIndex is the 0-based position within the content.
	// Indexes are contiguous for a single processing run.
	ChunkIndex int

	// Text is the text content of this chunk.
	Text string

	// StartTime is the offset in seconds of the first segment, for timed content.
	StartTime *float64

	// EndTime is the offset in seconds of the last segment end, for timed content.
	EndTime *float64

	// Embedding is the vector representation for semantic search.
	// It is persisted together with the chunk, never alone.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// Ref returns the content reference the chunk belongs to.
func (c Chunk) Ref() ContentRef {
	return ContentRef{ID: c.ContentID, Type: c.ContentType}
}

// Duration returns EndTime - StartTime, or zero for untimed chunks.
func (c Chunk) Duration() float64 {
	if c.StartTime == nil || c.EndTime == nil {
		return 0
	}
	return *c.EndTime - *c.StartTime
}

// Well-known chunk metadata keys.
const (
	MetaTotalChunks  = "total_chunks"
	MetaStrategy     = "strategy"
	MetaChapterTitle = "chapter_title"
	MetaChapterIndex = "chapter_index"
	MetaTag          = "tag"
	MetaOwnerID      = "owner_id"
	MetaTitle        = "title"
	MetaAuthor       = "author"
)

// TagFullVideo marks a short video indexed as a single chunk.
const TagFullVideo = "full_video"

// Seconds returns a pointer to v, for optional chunk timestamps.
func Seconds(v float64) *float64 {
	return &v
}
