// Package video extracts transcripts from video records.
package video

import (
	"context"
	"errors"
	"strings"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Transcript sources recorded in the "transcript_source" metadata key.
const (
	SourceSegments = "segments"
	SourceText     = "text"
	SourceDerived  = "derived"
)

// Extractor reads the best available transcript for a video.
type Extractor struct {
	content driven.ContentRepository
	deriver driven.TranscriptDeriver
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithDeriver enables on-demand transcript derivation. A nil deriver disables it.
func WithDeriver(d driven.TranscriptDeriver) Option {
	return func(e *Extractor) {
		e.deriver = d
	}
}

// New creates a video extractor.
func New(content driven.ContentRepository, opts ...Option) *Extractor {
	e := &Extractor{content: content}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ContentType returns domain.ContentTypeVideo.
func (e *Extractor) ContentType() domain.ContentType {
	return domain.ContentTypeVideo
}

// Extract returns, in order of preference, the cached timestamped transcript,
// the cached plain transcript or a freshly derived transcript. A video with
// none of these yields empty content with SkipReason set.
func (e *Extractor) Extract(ctx context.Context, contentID string) (*domain.ExtractedContent, error) {
	ref := domain.ContentRef{ID: contentID, Type: domain.ContentTypeVideo}

	video, err := e.content.GetVideo(ctx, contentID)
	if err != nil {
		return nil, &domain.ExtractionError{Ref: ref, Reason: "load video", Err: err}
	}

	out := &domain.ExtractedContent{Metadata: metadata(video)}

	if segs := nonBlank(video.TranscriptSegments); len(segs) > 0 {
		out.Segments = segs
		out.Chapters = video.Chapters
		out.Metadata["transcript_source"] = SourceSegments
		return out, nil
	}

	if text := strings.TrimSpace(video.Transcript); text != "" {
		out.Text = text
		out.Metadata["transcript_source"] = SourceText
		return out, nil
	}

	if e.deriver == nil {
		out.SkipReason = domain.SkipReasonNoTranscript
		return out, nil
	}

	segs, err := e.deriver.Derive(ctx, video)
	if errors.Is(err, domain.ErrNoTranscript) {
		out.SkipReason = domain.SkipReasonNoTranscript
		return out, nil
	}
	if err != nil {
		return nil, &domain.ExtractionError{Ref: ref, Reason: "derive transcript", Err: err}
	}
	segs = nonBlank(segs)
	if len(segs) == 0 {
		out.SkipReason = domain.SkipReasonNoTranscript
		return out, nil
	}

	if err := e.content.CacheTranscript(ctx, video.ID, segs); err != nil {
		logger.Component("extractor").Warn("failed to cache derived transcript",
			"content", ref.String(), "error", err)
	}

	out.Segments = segs
	out.Chapters = video.Chapters
	out.Metadata["transcript_source"] = SourceDerived
	return out, nil
}

func metadata(v *domain.Video) map[string]any {
	meta := map[string]any{
		domain.MetaTitle:   v.Title,
		domain.MetaOwnerID: v.OwnerID,
	}
	if v.URL != "" {
		meta["url"] = v.URL
	}
	if v.Duration > 0 {
		meta["duration"] = v.Duration
	}
	return meta
}

func nonBlank(segs []domain.TimedSegment) []domain.TimedSegment {
	var out []domain.TimedSegment
	for _, s := range segs {
		if strings.TrimSpace(s.Text) != "" {
			out = append(out, s)
		}
	}
	return out
}
