package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

func TestSupportedTypes(t *testing.T) {
	n := New()

	assert.Contains(t, n.SupportedMIMETypes(), "text/markdown")
	assert.Contains(t, n.SupportedExtensions(), "md")
	assert.Equal(t, 50, n.Priority())
}

func TestNormalise_NilFile(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawFile{
		Name:     "lesson-1.md",
		MIMEType: "text/markdown",
		Content:  []byte("# Variables\n\nGo has **static** types.\n\n- one\n- two\n"),
	}

	result, err := New().Normalise(context.Background(), raw)

	require.NoError(t, err)
	assert.Equal(t, "Variables", result.Title)
	assert.Equal(t, "Variables\n\nGo has static types.\n\none\ntwo", result.Text)
	assert.Equal(t, "markdown", result.Metadata["format"])
}

func TestNormalise_TitleFallback(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		fileName      string
		metadata      map[string]any
		expectedTitle string
	}{
		{"heading", "# My Document\ntext", "x.md", nil, "My Document"},
		{"h2 is not a title", "## Sub\ntext", "my-notes.md", nil, "my notes"},
		{"metadata title", "text", "x.md", map[string]any{"title": "Lesson"}, "Lesson"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := &domain.RawFile{Name: tc.fileName, Content: []byte(tc.content), Metadata: tc.metadata}
			result, err := New().Normalise(context.Background(), raw)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedTitle, result.Title)
		})
	}
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"headings", "# Title\n## Subtitle\n### Third ###", "Title\nSubtitle\nThird"},
		{"bold and italic", "This is **bold** and *italic* text", "This is bold and italic text"},
		{"underscore emphasis", "an _emphasised_ word", "an emphasised word"},
		{"snake case kept", "call my_func_name now", "call my_func_name now"},
		{"links", "[Click here](https://example.com)", "Click here"},
		{"images keep alt", "See ![diagram](a.png) here", "See diagram here"},
		{"inline code kept", "Use `go test` here", "Use go test here"},
		{"fenced code kept", "Before\n```go\nfmt.Println(1)\n```\nAfter", "Before\n\nfmt.Println(1)\n\nAfter"},
		{"blockquote", "> This is a quote", "This is a quote"},
		{"lists", "- Item 1\n* Item 2\n1. Item 3", "Item 1\nItem 2\nItem 3"},
		{"horizontal rule", "First\n---\nSecond", "First\n\nSecond"},
		{"strikethrough", "~~old~~ new", "old new"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, StripMarkdown(tc.input))
		})
	}
}
