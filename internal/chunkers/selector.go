package chunkers

import (
	"fmt"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// Ensure Selector implements the interface.
var _ driven.ChunkerSelector = (*Selector)(nil)

// Selector routes timed content to the time-window chunker and untimed
// content to the sentence chunker.
type Selector struct {
	text  driven.Chunker
	timed driven.Chunker
}

// NewSelector creates a selector over two chunkers.
func NewSelector(text, timed driven.Chunker) *Selector {
	return &Selector{text: text, timed: timed}
}

// NewDefaultSelector builds both default strategies from settings.
func NewDefaultSelector(cfg domain.ChunkingSettings) (*Selector, error) {
	r := NewRegistry()
	RegisterDefaults(r)

	text, err := r.Build(driven.ChunkStrategySentence, cfg)
	if err != nil {
		return nil, fmt.Errorf("build sentence chunker: %w", err)
	}
	timed, err := r.Build(driven.ChunkStrategyTimeWindow, cfg)
	if err != nil {
		return nil, fmt.Errorf("build time-window chunker: %w", err)
	}
	return NewSelector(text, timed), nil
}

// Select returns the chunker for the content.
func (s *Selector) Select(content *domain.ExtractedContent) (driven.Chunker, error) {
	if content.IsTimed() {
		if s.timed == nil {
			return nil, fmt.Errorf("%w: no time-window chunker configured", domain.ErrNotImplemented)
		}
		return s.timed, nil
	}
	if s.text == nil {
		return nil, fmt.Errorf("%w: no sentence chunker configured", domain.ErrNotImplemented)
	}
	return s.text, nil
}
