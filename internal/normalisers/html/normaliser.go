package html

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/normalisers/textclean"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{"html", "htm", "xhtml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts an HTML document to plain text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawFile) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	title, text, err := ExtractText(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = textclean.MetadataString(raw.Metadata, "title")
	}
	if title == "" {
		title = textclean.TitleFromName(raw.Name)
	}

	meta := textclean.CopyMetadata(raw.Metadata)
	meta["mime_type"] = raw.MIMEType
	meta["format"] = "html"

	return &driven.NormaliseResult{
		Text:     text,
		Title:    title,
		Metadata: meta,
	}, nil
}

// removed lists elements that never carry readable content.
const removed = "head, script, style, noscript, svg, nav, template, iframe"

// blockTags are rendered on their own lines.
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"header": true, "footer": true, "aside": true, "blockquote": true,
	"pre": true, "ul": true, "ol": true, "li": true, "dl": true, "dt": true,
	"dd": true, "table": true, "tr": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "hr": true, "figure": true,
	"figcaption": true, "body": true,
}

// ExtractText parses HTML and returns its title and readable text.
// EPUB chapters reuse this for their XHTML content documents.
func ExtractText(r io.Reader) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", fmt.Errorf("%w: parse html: %v", domain.ErrInvalidInput, err)
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find(removed).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var b strings.Builder
	writeText(&b, root)
	return title, textclean.Clean(b.String()), nil
}

// writeText walks child nodes depth-first, emitting text and line breaks.
func writeText(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch {
		case name == "#text":
			b.WriteString(strings.ReplaceAll(s.Text(), "\n", " "))
		case name == "#comment":
		case name == "br":
			b.WriteString("\n")
		case name == "td" || name == "th":
			writeText(b, s)
			b.WriteString(" ")
		case blockTags[name]:
			b.WriteString("\n\n")
			writeText(b, s)
			b.WriteString("\n\n")
		default:
			writeText(b, s)
		}
	})
}
