package chunkers

import (
	"github.com/custodia-labs/coursedex/internal/chunkers/sentence"
	"github.com/custodia-labs/coursedex/internal/chunkers/timewindow"
	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// RegisterDefaults registers the built-in strategies.
func RegisterDefaults(r *Registry) {
	r.Register(driven.ChunkStrategySentence, buildSentence)
	r.Register(driven.ChunkStrategyTimeWindow, buildTimeWindow)
}

func buildSentence(cfg domain.ChunkingSettings) (driven.Chunker, error) {
	var opts []sentence.Option
	if cfg.ChunkSize > 0 {
		opts = append(opts, sentence.WithChunkSize(cfg.ChunkSize))
	}
	if cfg.Overlap >= 0 {
		opts = append(opts, sentence.WithOverlap(cfg.Overlap))
	}
	return sentence.New(opts...), nil
}

func buildTimeWindow(cfg domain.ChunkingSettings) (driven.Chunker, error) {
	return timewindow.New(cfg), nil
}
