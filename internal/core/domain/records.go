package domain

import (
	"path/filepath"
	"strings"
)

// Book is the externally owned record for an uploaded book file.
type Book struct {
	ID      string `toml:"id"`
	OwnerID string `toml:"owner_id"`
	Title   string `toml:"title"`
	Author  string `toml:"author"`

	// FilePath is the storage path of the uploaded file.
	FilePath string `toml:"file_path"`

	// FileType is the declared format ("pdf", "epub", "docx", "txt").
	// Empty means derive it from FilePath.
	FileType string `toml:"file_type"`
}

// Format returns the lower-case file format, falling back to the extension.
func (b Book) Format() string {
	if b.FileType != "" {
		return strings.ToLower(strings.TrimPrefix(b.FileType, "."))
	}
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(b.FilePath), "."))
}

// Video is the externally owned record for a video.
type Video struct {
	ID      string `toml:"id"`
	OwnerID string `toml:"owner_id"`
	Title   string `toml:"title"`
	URL     string `toml:"url"`

	// Duration is the video length in seconds, when known.
	Duration float64 `toml:"duration"`

	// TranscriptSegments is the cached timestamped transcript.
	TranscriptSegments []TimedSegment `toml:"segments"`

	// Transcript is the cached plain transcript.
	Transcript string `toml:"transcript"`

	// Chapters are the video chapters, ordered by start time.
	Chapters []Chapter `toml:"chapters"`

	// CaptionsPath is the storage path of a WebVTT or SRT captions file
	// used to derive a transcript on demand.
	CaptionsPath string `toml:"captions_path"`
}

// LessonFormat is the markup of a lesson body.
type LessonFormat string

// Lesson body formats.
const (
	LessonFormatText     LessonFormat = "text"
	LessonFormatMarkdown LessonFormat = "markdown"
	LessonFormatHTML     LessonFormat = "html"
)

// Lesson is one stored lesson or document body inside a course.
type Lesson struct {
	Title    string       `toml:"title"`
	Format   LessonFormat `toml:"format"`
	Body     string       `toml:"body"`
	Position int          `toml:"position"`
}

// Course is the externally owned record for structured course text.
type Course struct {
	ID      string   `toml:"id"`
	OwnerID string   `toml:"owner_id"`
	Title   string   `toml:"title"`
	Lessons []Lesson `toml:"lessons"`
}
