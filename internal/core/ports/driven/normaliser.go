package driven

import (
	"context"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

// Normaliser transforms raw file bytes into plain text.
// Each normaliser handles specific MIME types (e.g., PDF, EPUB).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// SupportedExtensions returns file extensions (without dot) this normaliser handles.
	SupportedExtensions() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise extracts text from a raw file.
	// Corrupt or unreadable input returns an error wrapping domain.ErrInvalidInput.
	Normalise(ctx context.Context, raw *domain.RawFile) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
type NormaliseResult struct {
	// Text is the extracted plain text.
	Text string

	// Title is the document title when the format carries one.
	Title string

	// Author is the document author when the format carries one.
	Author string

	// Metadata holds format-specific attributes (format, page count, ...).
	Metadata map[string]any
}
