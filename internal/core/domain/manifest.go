package domain

import (
	"fmt"
	"strings"
)

// ImportManifest lists content records to register, typically decoded from
// a TOML file passed to the import command.
type ImportManifest struct {
	Books   []ImportBook  `toml:"books"`
	Videos  []ImportVideo `toml:"videos"`
	Courses []Course      `toml:"courses"`
}

// ImportBook is a book record plus the local file to upload.
type ImportBook struct {
	ID       string `toml:"id"`
	OwnerID  string `toml:"owner_id"`
	Title    string `toml:"title"`
	Author   string `toml:"author"`
	FileType string `toml:"file_type"`

	// Source is a local file uploaded to blob storage on import.
	Source string `toml:"source"`

	// FilePath is an existing blob path. Used when Source is empty.
	FilePath string `toml:"file_path"`
}

// ImportVideo is a video record plus an optional local captions file.
type ImportVideo struct {
	ID         string         `toml:"id"`
	OwnerID    string         `toml:"owner_id"`
	Title      string         `toml:"title"`
	URL        string         `toml:"url"`
	Duration   float64        `toml:"duration"`
	Transcript string         `toml:"transcript"`
	Segments   []TimedSegment `toml:"segments"`
	Chapters   []Chapter      `toml:"chapters"`

	// CaptionsSource is a local WebVTT or SRT file uploaded on import.
	CaptionsSource string `toml:"captions_source"`

	// CaptionsPath is an existing blob path. Used when CaptionsSource is empty.
	CaptionsPath string `toml:"captions_path"`
}

// Book converts the entry to a record stored at filePath.
func (b ImportBook) Book(filePath string) *Book {
	return &Book{
		ID:       b.ID,
		OwnerID:  b.OwnerID,
		Title:    b.Title,
		Author:   b.Author,
		FilePath: filePath,
		FileType: b.FileType,
	}
}

// Video converts the entry to a record with captions at captionsPath.
func (v ImportVideo) Video(captionsPath string) *Video {
	return &Video{
		ID:                 v.ID,
		OwnerID:            v.OwnerID,
		Title:              v.Title,
		URL:                v.URL,
		Duration:           v.Duration,
		TranscriptSegments: v.Segments,
		Transcript:         v.Transcript,
		Chapters:           v.Chapters,
		CaptionsPath:       captionsPath,
	}
}

// Len returns the number of records in the manifest.
func (m *ImportManifest) Len() int {
	return len(m.Books) + len(m.Videos) + len(m.Courses)
}

// Validate checks IDs are present and unique per content type, and that
// every book names a file.
func (m *ImportManifest) Validate() error {
	seen := make(map[ContentRef]bool, m.Len())
	check := func(id string, t ContentType) error {
		ref := ContentRef{ID: strings.TrimSpace(id), Type: t}
		if err := ref.Validate(); err != nil {
			return err
		}
		if seen[ref] {
			return fmt.Errorf("%w: duplicate %s", ErrAlreadyExists, ref)
		}
		seen[ref] = true
		return nil
	}

	for _, b := range m.Books {
		if err := check(b.ID, ContentTypeBook); err != nil {
			return err
		}
		if b.Source == "" && b.FilePath == "" {
			return fmt.Errorf("%w: book %q needs source or file_path", ErrInvalidInput, b.ID)
		}
	}
	for _, v := range m.Videos {
		if err := check(v.ID, ContentTypeVideo); err != nil {
			return err
		}
	}
	for _, c := range m.Courses {
		if err := check(c.ID, ContentTypeCourse); err != nil {
			return err
		}
	}
	return nil
}
