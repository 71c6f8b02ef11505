// Package pdf provides a Normaliser for PDF documents using the pure-Go
// ledongthuc/pdf reader. Pages are extracted in order; pages that fail to
// decode are skipped, and a document yielding no text at all is an error.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/logger"
	"github.com/custodia-labs/coursedex/internal/normalisers/textclean"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// DefaultMaxSize caps in-memory extraction.
const DefaultMaxSize = 200 << 20

// Normaliser handles PDF documents.
type Normaliser struct {
	maxSize int
}

// Option configures the normaliser.
type Option func(*Normaliser)

// WithMaxSize sets the largest accepted file in bytes.
func WithMaxSize(n int) Option {
	return func(p *Normaliser) {
		if n > 0 {
			p.maxSize = n
		}
	}
}

// New creates a new PDF normaliser.
func New(opts ...Option) *Normaliser {
	n := &Normaliser{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{"pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 60
}

// Normalise extracts the text of every page.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawFile) (result *driven.NormaliseResult, err error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if len(raw.Content) > n.maxSize {
		return nil, fmt.Errorf("%w: pdf too large (%d bytes)", domain.ErrInvalidInput, len(raw.Content))
	}

	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: malformed pdf: %v", domain.ErrInvalidInput, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", domain.ErrInvalidInput, err)
	}

	log := logger.Component("pdf")
	pages := reader.NumPage()
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn("skipping unreadable page", "file", raw.Name, "page", i, "error", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}

	info := reader.Trailer().Key("Info")
	title := strings.TrimSpace(info.Key("Title").Text())
	if title == "" {
		title = textclean.TitleFromName(raw.Name)
	}

	meta := textclean.CopyMetadata(raw.Metadata)
	meta["mime_type"] = raw.MIMEType
	meta["format"] = "pdf"
	meta["pages"] = pages

	return &driven.NormaliseResult{
		Text:     textclean.Clean(strings.Join(parts, "\n\n")),
		Title:    title,
		Author:   strings.TrimSpace(info.Key("Author").Text()),
		Metadata: meta,
	}, nil
}
