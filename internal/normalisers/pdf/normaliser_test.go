package pdf

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// buildPDF writes a minimal single-font PDF with one page per text and a
// correct cross-reference table.
func buildPDF(title, author string, pageTexts ...string) []byte {
	var objects []string

	kids := ""
	for i := range pageTexts {
		kids += fmt.Sprintf("%d 0 R ", 4+i*2)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(pageTexts)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pageTexts {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+i*2),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}
	infoNum := len(objects) + 1
	objects = append(objects, fmt.Sprintf("<< /Title (%s) /Author (%s) >>", title, author))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, infoNum, xref)
	return buf.Bytes()
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)

	n := New()
	assert.Equal(t, []string{"application/pdf"}, n.SupportedMIMETypes())
	assert.Equal(t, []string{"pdf"}, n.SupportedExtensions())
	assert.Equal(t, 60, n.Priority())
}

func TestNormalise_Pages(t *testing.T) {
	raw := &domain.RawFile{
		Name:     "go-book.pdf",
		MIMEType: "application/pdf",
		Content:  buildPDF("Go Patterns", "Ann Writer", "Hello PDF World", "Second page text"),
	}

	result, err := New().Normalise(context.Background(), raw)

	require.NoError(t, err)
	assert.Contains(t, result.Text, "Hello PDF World")
	assert.Contains(t, result.Text, "Second page text")
	assert.Equal(t, "Go Patterns", result.Title)
	assert.Equal(t, "Ann Writer", result.Author)
	assert.Equal(t, 2, result.Metadata["pages"])
	assert.Equal(t, "pdf", result.Metadata["format"])
}

func TestNormalise_TitleFallsBackToName(t *testing.T) {
	raw := &domain.RawFile{Name: "field_notes.pdf", Content: buildPDF("", "", "Body")}

	result, err := New().Normalise(context.Background(), raw)

	require.NoError(t, err)
	assert.Equal(t, "field notes", result.Title)
}

func TestNormalise_NotAPDF(t *testing.T) {
	raw := &domain.RawFile{Name: "fake.pdf", Content: bytes.Repeat([]byte("not a pdf "), 20)}

	_, err := New().Normalise(context.Background(), raw)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_TooLarge(t *testing.T) {
	raw := &domain.RawFile{Name: "big.pdf", Content: make([]byte, 2048)}

	_, err := New(WithMaxSize(1024)).Normalise(context.Background(), raw)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "too large")
}

func TestNormalise_NilFile(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
