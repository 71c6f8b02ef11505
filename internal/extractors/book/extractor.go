// Package book extracts text from uploaded book files.
package book

import (
	"context"
	"errors"
	"strings"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/logger"
	"github.com/custodia-labs/coursedex/internal/normalisers/docx"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// mimeTypes maps declared book formats to the MIME type used for dispatch.
var mimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"epub": "application/epub+zip",
	"docx": docx.MIMEType,
	"txt":  "text/plain",
	"text": "text/plain",
	"md":   "text/markdown",
	"html": "text/html",
	"htm":  "text/html",
}

// Extractor loads a book record, downloads its file and normalises the bytes.
type Extractor struct {
	content     driven.ContentRepository
	blobs       driven.BlobStorage
	normalisers driven.NormaliserRegistry
}

// New creates a book extractor.
func New(content driven.ContentRepository, blobs driven.BlobStorage, normalisers driven.NormaliserRegistry) *Extractor {
	return &Extractor{content: content, blobs: blobs, normalisers: normalisers}
}

// ContentType returns domain.ContentTypeBook.
func (e *Extractor) ContentType() domain.ContentType {
	return domain.ContentTypeBook
}

// Extract returns the full text of the book with title, author, owner and format.
// Unsupported formats, corrupt files and files with no text fail.
func (e *Extractor) Extract(ctx context.Context, contentID string) (*domain.ExtractedContent, error) {
	ref := domain.ContentRef{ID: contentID, Type: domain.ContentTypeBook}
	fail := func(reason string, err error) error {
		return &domain.ExtractionError{Ref: ref, Reason: reason, Err: err}
	}

	book, err := e.content.GetBook(ctx, contentID)
	if err != nil {
		return nil, fail("load book", err)
	}
	if book.FilePath == "" {
		return nil, fail("book has no file", domain.ErrInvalidInput)
	}

	format := book.Format()
	if format == "" {
		return nil, fail("unknown file type", domain.ErrUnsupportedType)
	}

	data, err := e.blobs.Download(ctx, book.FilePath)
	if err != nil {
		return nil, fail("download "+book.FilePath, err)
	}

	logger.Component("extractor").Debug("normalising book",
		"content", ref.String(), "format", format, "bytes", len(data))

	result, err := e.normalisers.Normalise(ctx, &domain.RawFile{
		Name:     book.FilePath,
		MIMEType: mimeTypes[format],
		Content:  data,
		Metadata: map[string]any{domain.MetaTitle: book.Title},
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedType) {
			return nil, fail("unsupported file type "+format, err)
		}
		return nil, fail("read "+format, err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return nil, fail("no text found in "+format+" file", domain.ErrInvalidInput)
	}

	meta := make(map[string]any, len(result.Metadata)+4)
	for k, v := range result.Metadata {
		meta[k] = v
	}
	meta[domain.MetaTitle] = firstNonEmpty(book.Title, result.Title)
	meta[domain.MetaAuthor] = firstNonEmpty(book.Author, result.Author)
	meta[domain.MetaOwnerID] = book.OwnerID
	meta["file_type"] = format

	return &domain.ExtractedContent{
		Text:     result.Text,
		Metadata: meta,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
