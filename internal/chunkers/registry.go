package chunkers

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// BuilderFunc creates a Chunker from chunking settings.
type BuilderFunc func(cfg domain.ChunkingSettings) (driven.Chunker, error)

// Registry maps strategies to their builders.
type Registry struct {
	builders map[driven.ChunkStrategy]BuilderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[driven.ChunkStrategy]BuilderFunc),
	}
}

// Register adds a builder for a strategy, replacing any previous one.
func (r *Registry) Register(strategy driven.ChunkStrategy, builder BuilderFunc) {
	r.builders[strategy] = builder
}

// Build creates the chunker for a strategy.
func (r *Registry) Build(strategy driven.ChunkStrategy, cfg domain.ChunkingSettings) (driven.Chunker, error) {
	builder, ok := r.builders[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: chunking strategy %q", domain.ErrUnsupportedType, strategy)
	}
	return builder(cfg)
}

// Has returns true if a strategy is registered.
func (r *Registry) Has(strategy driven.ChunkStrategy) bool {
	_, ok := r.builders[strategy]
	return ok
}

// Strategies returns registered strategies in sorted order.
func (r *Registry) Strategies() []driven.ChunkStrategy {
	out := make([]driven.ChunkStrategy, 0, len(r.builders))
	for s := range r.builders {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
