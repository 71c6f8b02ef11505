package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

type stubNormaliser struct {
	name       string
	mimeTypes  []string
	extensions []string
	priority   int
}

func (s *stubNormaliser) SupportedMIMETypes() []string  { return s.mimeTypes }
func (s *stubNormaliser) SupportedExtensions() []string { return s.extensions }
func (s *stubNormaliser) Priority() int                 { return s.priority }
func (s *stubNormaliser) Normalise(_ context.Context, _ *domain.RawFile) (*driven.NormaliseResult, error) {
	return &driven.NormaliseResult{Text: s.name}, nil
}

func TestRegistry_PrefersHigherPriority(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{name: "low", mimeTypes: []string{"text/html"}, priority: 5})
	r.Register(&stubNormaliser{name: "high", mimeTypes: []string{"text/html"}, priority: 50})

	result, err := r.Normalise(context.Background(), &domain.RawFile{MIMEType: "text/html; charset=utf-8"})

	require.NoError(t, err)
	assert.Equal(t, "high", result.Text)
}

func TestRegistry_FallsBackToExtension(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{name: "epub", extensions: []string{"epub"}, priority: 60})

	result, err := r.Normalise(context.Background(), &domain.RawFile{Name: "Book.EPUB", MIMEType: "application/octet-stream"})

	require.NoError(t, err)
	assert.Equal(t, "epub", result.Text)

	assert.NotNil(t, r.Find("", "epub"))
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()

	_, err := r.Normalise(context.Background(), &domain.RawFile{Name: "song.mp3", MIMEType: "audio/mpeg"})

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_NilFile(t *testing.T) {
	_, err := NewRegistry().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDefaults_CoverBookFormats(t *testing.T) {
	r := Defaults()

	for _, name := range []string{"a.pdf", "a.epub", "a.docx", "a.txt", "a.md", "a.html"} {
		assert.NotNil(t, r.Find("", name), name)
	}
	types := r.SupportedMIMETypes()
	assert.Contains(t, types, "application/pdf")
	assert.Contains(t, types, "application/epub+zip")
	assert.IsNonDecreasing(t, types)
}

func TestDefaults_NormalisesPlainText(t *testing.T) {
	result, err := Defaults().Normalise(context.Background(), &domain.RawFile{
		Name:    "notes.txt",
		Content: []byte("Some   notes."),
	})

	require.NoError(t, err)
	assert.Equal(t, "Some notes.", result.Text)
}
