package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

func TestPriority_IsFallback(t *testing.T) {
	n := New()

	assert.Equal(t, 5, n.Priority())
	assert.Contains(t, n.SupportedMIMETypes(), "text/plain")
	assert.Contains(t, n.SupportedExtensions(), "txt")
}

func TestNormalise_NilFile(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawFile{
		Name:     "chapter_one.txt",
		MIMEType: "text/plain",
		Content:  []byte("  Line one.  \r\n\r\n\r\n\r\nLine   two."),
	}

	result, err := New().Normalise(context.Background(), raw)

	require.NoError(t, err)
	assert.Equal(t, "Line one.\n\nLine two.", result.Text)
	assert.Equal(t, "chapter one", result.Title)
	assert.Equal(t, "text", result.Metadata["format"])
	assert.Equal(t, "text/plain", result.Metadata["mime_type"])
}

func TestNormalise_MetadataTitleWins(t *testing.T) {
	raw := &domain.RawFile{
		Name:     "x.txt",
		Content:  []byte("body"),
		Metadata: map[string]any{"title": "Real Title"},
	}

	result, err := New().Normalise(context.Background(), raw)

	require.NoError(t, err)
	assert.Equal(t, "Real Title", result.Title)
	assert.Equal(t, "Real Title", raw.Metadata["title"])
}

func TestNormalise_RejectsBinary(t *testing.T) {
	raw := &domain.RawFile{Name: "blob.txt", Content: []byte{0xff, 0xfe, 0x00, 0x81}}

	_, err := New().Normalise(context.Background(), raw)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
