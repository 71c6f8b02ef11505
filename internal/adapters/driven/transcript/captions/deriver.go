// Package captions derives video transcripts from stored caption files.
//
// WebVTT and SubRip (SRT) are supported. Cue markup such as <c>, <v Name>
// and inline timestamps is stripped, and consecutive duplicate cues produced
// by rolling auto-captions are merged.
package captions

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/logger"
)

// Ensure Deriver implements the interface.
var _ driven.TranscriptDeriver = (*Deriver)(nil)

// Deriver reads a video's captions file from blob storage.
type Deriver struct {
	blobs driven.BlobStorage
}

// New creates a captions deriver.
func New(blobs driven.BlobStorage) *Deriver {
	return &Deriver{blobs: blobs}
}

// Derive returns the timed segments parsed from the video's captions file.
// Videos without a captions file, or with an empty one, yield
// domain.ErrNoTranscript.
func (d *Deriver) Derive(ctx context.Context, video *domain.Video) ([]domain.TimedSegment, error) {
	if video.CaptionsPath == "" {
		return nil, domain.ErrNoTranscript
	}

	data, err := d.blobs.Download(ctx, video.CaptionsPath)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Component("captions").Warn("captions file missing",
			"video", video.ID, "path", video.CaptionsPath)
		return nil, fmt.Errorf("%w: %v", domain.ErrNoTranscript, err)
	}
	if err != nil {
		return nil, fmt.Errorf("download captions: %w", err)
	}

	segs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse captions %q: %w", video.CaptionsPath, err)
	}
	if len(segs) == 0 {
		return nil, domain.ErrNoTranscript
	}
	return segs, nil
}
