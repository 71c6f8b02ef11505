// Package markdown provides a Normaliser for Markdown text, reducing
// formatting syntax to plain prose while keeping code and link text.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/normalisers/textclean"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{"md", "markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Higher than plaintext
}

// Normalise converts a markdown document to plain text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawFile) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := string(raw.Content)

	title := extractMarkdownTitle(content)
	if title == "" {
		title = textclean.MetadataString(raw.Metadata, "title")
	}
	if title == "" {
		title = textclean.TitleFromName(raw.Name)
	}

	meta := textclean.CopyMetadata(raw.Metadata)
	meta["mime_type"] = raw.MIMEType
	meta["format"] = "markdown"

	return &driven.NormaliseResult{
		Text:     textclean.Clean(StripMarkdown(content)),
		Title:    title,
		Metadata: meta,
	}, nil
}

// extractMarkdownTitle returns the first H1 heading, if any.
func extractMarkdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

var (
	fenceLine    = regexp.MustCompile("(?m)^[ \\t]*(```|~~~).*$")
	inlineCode   = regexp.MustCompile("`([^`\n]+)`")
	images       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	refLinkDefs  = regexp.MustCompile(`(?m)^[ \t]*\[[^\]]+\]:[ \t]+\S+.*$`)
	headings     = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]+`)
	closingHash  = regexp.MustCompile(`(?m)[ \t]+#+[ \t]*$`)
	boldStars    = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	boldUnders   = regexp.MustCompile(`__([^_\n]+)__`)
	italicStars  = regexp.MustCompile(`\*([^*\n]+)\*`)
	italicUnders = regexp.MustCompile(`(^|[^\w])_([^_\n]+)_([^\w]|$)`)
	strike       = regexp.MustCompile(`~~([^~\n]+)~~`)
	blockquote   = regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`)
	hr           = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	listMarkers  = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	numberedList = regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]+`)
	tablePipes   = regexp.MustCompile(`(?m)^[ \t]*\|?[ \t]*:?-{3,}:?[ \t]*(\|[ \t]*:?-{3,}:?[ \t]*)*\|?[ \t]*$`)
)

// StripMarkdown removes markdown syntax, keeping readable text.
// Fenced code keeps its content; only the fence lines are dropped.
func StripMarkdown(content string) string {
	content = fenceLine.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = refLinkDefs.ReplaceAllString(content, "")
	content = hr.ReplaceAllString(content, "")
	content = tablePipes.ReplaceAllString(content, "")
	content = headings.ReplaceAllString(content, "")
	content = closingHash.ReplaceAllString(content, "")
	content = boldStars.ReplaceAllString(content, "$1")
	content = boldUnders.ReplaceAllString(content, "$1")
	content = italicStars.ReplaceAllString(content, "$1")
	content = italicUnders.ReplaceAllString(content, "$1$2$3")
	content = strike.ReplaceAllString(content, "$1")
	content = blockquote.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "|", " ")
	return strings.TrimSpace(content)
}
