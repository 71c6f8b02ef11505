package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentType(t *testing.T) {
	tests := []struct {
		input    string
		expected ContentType
		wantErr  bool
	}{
		{"book", ContentTypeBook, false},
		{" Video ", ContentTypeVideo, false},
		{"COURSE", ContentTypeCourse, false},
		{"podcast", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseContentType(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestContentRef_Validate(t *testing.T) {
	assert.NoError(t, ContentRef{ID: "1", Type: ContentTypeBook}.Validate())
	assert.ErrorIs(t, ContentRef{ID: " ", Type: ContentTypeBook}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, ContentRef{ID: "1", Type: "audio"}.Validate(), ErrUnsupportedType)
	assert.Equal(t, "video/abc", ContentRef{ID: "abc", Type: ContentTypeVideo}.String())
}

func TestExtractedContent_IsEmpty(t *testing.T) {
	var nilContent *ExtractedContent
	assert.True(t, nilContent.IsEmpty())
	assert.True(t, (&ExtractedContent{Text: "  \n\t"}).IsEmpty())
	assert.True(t, (&ExtractedContent{SkipReason: SkipReasonNoTranscript}).IsEmpty())
	assert.False(t, (&ExtractedContent{Text: "hello"}).IsEmpty())
	assert.False(t, (&ExtractedContent{Segments: []TimedSegment{{Start: 0, End: 1}}}).IsEmpty())
}

func TestExtractedContent_TotalDuration(t *testing.T) {
	content := &ExtractedContent{Segments: []TimedSegment{
		{Start: 5, End: 10, Text: "a"},
		{Start: 10, End: 65, Text: "b"},
		{Start: 65, End: 70, Text: "c"},
	}}
	assert.True(t, content.IsTimed())
	assert.InDelta(t, 65.0, content.TotalDuration(), 1e-9)
	assert.Zero(t, (&ExtractedContent{Text: "x"}).TotalDuration())
}

func TestNormaliseScore(t *testing.T) {
	assert.Equal(t, 1.0, NormaliseScore(1.0000001))
	assert.Equal(t, 0.75, NormaliseScore(0.75))
	assert.Equal(t, MinSimilarityScore, NormaliseScore(0))
	assert.Equal(t, MinSimilarityScore, NormaliseScore(-0.4))
}

func TestBook_Format(t *testing.T) {
	assert.Equal(t, "pdf", Book{FilePath: "books/a.PDF"}.Format())
	assert.Equal(t, "epub", Book{FilePath: "books/a.bin", FileType: ".EPUB"}.Format())
	assert.Equal(t, "", Book{FilePath: "books/noext"}.Format())
}

func TestQueueStatus(t *testing.T) {
	assert.True(t, QueueStatusPending.IsValid())
	assert.False(t, QueueStatus("stuck").IsValid())
	assert.True(t, QueueStatusFailed.IsTerminal())
	assert.False(t, QueueStatusProcessing.IsTerminal())
	assert.Equal(t, 10, QueueStats{Pending: 1, Processing: 2, Completed: 3, Failed: 4}.Total())
}
