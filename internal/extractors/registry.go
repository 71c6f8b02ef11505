package extractors

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps content types to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[domain.ContentType]driven.Extractor
}

// NewRegistry creates a registry holding the given extractors.
func NewRegistry(extractors ...driven.Extractor) *Registry {
	r := &Registry{extractors: make(map[domain.ContentType]driven.Extractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor, replacing any previous one for the same type.
func (r *Registry) Register(e driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[e.ContentType()] = e
}

// Get returns the extractor for the content type.
func (r *Registry) Get(contentType domain.ContentType) (driven.Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.extractors[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: no extractor for content type %q", domain.ErrUnsupportedType, contentType)
	}
	return e, nil
}

// ContentTypes returns the registered content types in canonical order.
func (r *Registry) ContentTypes() []domain.ContentType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.ContentType
	for _, t := range domain.AllContentTypes() {
		if _, ok := r.extractors[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
