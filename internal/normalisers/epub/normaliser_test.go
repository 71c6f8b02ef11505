package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

func buildEPUB(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, body := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`

const contentOPF = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Learning Go</dc:title>
    <dc:creator>Jane Doe</dc:creator>
    <dc:creator>John Roe</dc:creator>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="ch2" href="text/ch%202.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="style.css" media-type="text/css"/>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="nav" linear="no"/>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

func TestNormalise_SpineOrder(t *testing.T) {
	content := buildEPUB(t, map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": containerXML,
		"OEBPS/content.opf":      contentOPF,
		"OEBPS/text/ch1.xhtml":   `<html><head><title>One</title></head><body><h1>Chapter One</h1><p>Packages.</p></body></html>`,
		"OEBPS/text/ch 2.xhtml":  `<html><body><h1>Chapter Two</h1><p>Interfaces.</p></body></html>`,
		"OEBPS/nav.xhtml":        `<html><body><p>Table of contents</p></body></html>`,
		"OEBPS/style.css":        `p { color: red }`,
	})

	result, err := New().Normalise(context.Background(), &domain.RawFile{
		Name:     "learning-go.epub",
		MIMEType: "application/epub+zip",
		Content:  content,
	})

	require.NoError(t, err)
	assert.Equal(t, "Learning Go", result.Title)
	assert.Equal(t, "Jane Doe, John Roe", result.Author)
	assert.Equal(t, "Chapter One\n\nPackages.\n\nChapter Two\n\nInterfaces.", result.Text)
	assert.NotContains(t, result.Text, "Table of contents")
	assert.Equal(t, 2, result.Metadata["chapters"])
	assert.Equal(t, "en", result.Metadata["language"])
}

func TestNormalise_MissingContainer(t *testing.T) {
	content := buildEPUB(t, map[string]string{"mimetype": "application/epub+zip"})

	_, err := New().Normalise(context.Background(), &domain.RawFile{Name: "x.epub", Content: content})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_NotZip(t *testing.T) {
	_, err := New().Normalise(context.Background(), &domain.RawFile{Name: "x.epub", Content: []byte("nope")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_MissingSpineDocument(t *testing.T) {
	content := buildEPUB(t, map[string]string{
		"META-INF/container.xml": containerXML,
		"OEBPS/content.opf":      contentOPF,
	})

	_, err := New().Normalise(context.Background(), &domain.RawFile{Name: "x.epub", Content: content})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "OEBPS/text/a b.xhtml", resolve("OEBPS/content.opf", "text/a%20b.xhtml#frag"))
	assert.Equal(t, "ch.xhtml", resolve("content.opf", "ch.xhtml"))
	assert.Equal(t, "OPS/ch.xhtml", resolve("OPS/sub/content.opf", "../ch.xhtml"))
}
