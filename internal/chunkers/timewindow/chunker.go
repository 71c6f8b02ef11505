// Package timewindow chunks timestamped transcripts.
//
// Short videos become a single full-transcript chunk. Longer videos are cut
// into fixed-duration windows bounded by a token budget, each window seeded
// with an overlap tail of the previous one. When a video has two or more
// chapters, chunks follow chapter boundaries instead, and a chapter that is
// too large is itself cut into windows.
package timewindow

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/coursedex/internal/chunkers/chunkmeta"
	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Per-chunk strategy labels.
const (
	StrategyFullVideo  = "full_video"
	StrategyTimeWindow = "time_window"
	StrategyChapter    = "chapter"
)

// MetaChapterPart numbers sub-chunks of a split chapter from 0.
const MetaChapterPart = "chapter_part"

// maxTailFraction caps the overlap tail at this share of the window target.
// The last segment of a window is carried over regardless.
const maxTailFraction = 0.25

// Chunker splits timed segments into windows.
type Chunker struct {
	cfg domain.ChunkingSettings
}

// New creates a time-window chunker. Zero settings fall back to defaults.
func New(cfg domain.ChunkingSettings) *Chunker {
	def := domain.DefaultChunkingSettings()
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = def.TokenBudget
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = 0
	}
	if cfg.OverlapTokens >= cfg.TokenBudget {
		cfg.OverlapTokens = cfg.TokenBudget / 8
	}
	if cfg.ShortVideo <= 0 {
		cfg.ShortVideo = def.ShortVideo
	}
	if cfg.MediumVideo <= 0 {
		cfg.MediumVideo = def.MediumVideo
	}
	if cfg.MediumWindow <= 0 {
		cfg.MediumWindow = def.MediumWindow
	}
	if cfg.LongWindow <= 0 {
		cfg.LongWindow = def.LongWindow
	}
	if cfg.ChapterMaxDuration <= 0 {
		cfg.ChapterMaxDuration = def.ChapterMaxDuration
	}
	return &Chunker{cfg: cfg}
}

// Strategy returns the strategy identifier.
func (c *Chunker) Strategy() driven.ChunkStrategy {
	return driven.ChunkStrategyTimeWindow
}

// Chunk splits content.Segments. Empty input yields zero chunks.
func (c *Chunker) Chunk(ctx context.Context, ref domain.ContentRef, content *domain.ExtractedContent) ([]domain.Chunk, error) {
	if content == nil {
		return nil, nil
	}
	segments, err := usableSegments(content.Segments)
	if err != nil {
		return nil, &domain.ChunkingError{Ref: ref, Reason: "invalid segments", Err: err}
	}
	if len(segments) == 0 {
		if strings.TrimSpace(content.Text) != "" {
			return nil, &domain.ChunkingError{Ref: ref, Reason: "untimed text passed to time-window chunker"}
		}
		return nil, nil
	}

	var chunks []domain.Chunk
	chapters := normaliseChapters(content.Chapters, segments)
	switch {
	case len(chapters) >= 2:
		chunks, err = c.byChapter(ctx, segments, chapters)
	case span(segments) < c.cfg.ShortVideo.Seconds():
		chunk := windowChunk(segments)
		chunk.Metadata = map[string]any{
			domain.MetaStrategy: StrategyFullVideo,
			domain.MetaTag:      domain.TagFullVideo,
		}
		chunks = []domain.Chunk{chunk}
	default:
		chunks, err = c.byWindow(ctx, segments, c.target(span(segments)))
	}
	if err != nil {
		return nil, err
	}

	return chunkmeta.Finalise(ref, string(c.Strategy()), content.Metadata, chunks), nil
}

// target picks the window length for a stretch of the given duration.
func (c *Chunker) target(duration float64) float64 {
	if duration < c.cfg.MediumVideo.Seconds() {
		return c.cfg.MediumWindow.Seconds()
	}
	return c.cfg.LongWindow.Seconds()
}

func (c *Chunker) byWindow(ctx context.Context, segments []domain.TimedSegment, target float64) ([]domain.Chunk, error) {
	windows, err := c.Windows(ctx, segments, target)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, 0, len(windows))
	for _, w := range windows {
		chunk := windowChunk(w)
		chunk.Metadata = map[string]any{domain.MetaStrategy: StrategyTimeWindow}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (c *Chunker) byChapter(ctx context.Context, segments []domain.TimedSegment, chapters []domain.Chapter) ([]domain.Chunk, error) {
	groups := assignToChapters(segments, chapters)

	var chunks []domain.Chunk
	for i, ch := range chapters {
		segs := groups[i]
		if len(segs) == 0 {
			continue
		}

		if tokens(segs) <= c.cfg.TokenBudget && span(segs) <= c.cfg.ChapterMaxDuration.Seconds() {
			chunk := windowChunk(segs)
			chunk.Metadata = map[string]any{
				domain.MetaStrategy:     StrategyChapter,
				domain.MetaChapterTitle: ch.Title,
				domain.MetaChapterIndex: i,
			}
			chunks = append(chunks, chunk)
			continue
		}

		windows, err := c.Windows(ctx, segs, c.target(span(segs)))
		if err != nil {
			return nil, err
		}
		for part, w := range windows {
			chunk := windowChunk(w)
			chunk.Metadata = map[string]any{
				domain.MetaStrategy:     StrategyTimeWindow,
				domain.MetaChapterTitle: ch.Title,
				domain.MetaChapterIndex: i,
				MetaChapterPart:         part,
			}
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

// Windows groups segments into windows of at most target seconds and the
// token budget. A window closes when the next segment would exceed either
// bound; the next window opens with the overlap tail of the closed one.
// A single segment larger than both bounds forms its own window.
func (c *Chunker) Windows(ctx context.Context, segments []domain.TimedSegment, target float64) ([][]domain.TimedSegment, error) {
	var (
		windows [][]domain.TimedSegment
		current []domain.TimedSegment
		used    int
	)

	fits := func(seg domain.TimedSegment, t int) bool {
		return used+t <= c.cfg.TokenBudget && seg.End-current[0].Start <= target
	}

	for i, seg := range segments {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		t := EstimateTokens(seg.Text)

		if len(current) > 0 && !fits(seg, t) {
			windows = append(windows, current)
			current = c.overlapTail(current, target)
			used = tokens(current)
			for len(current) > 0 && !fits(seg, t) {
				used -= EstimateTokens(current[0].Text)
				current = current[1:]
			}
		}

		current = append(current, seg)
		used += t
	}
	if len(current) > 0 {
		windows = append(windows, current)
	}
	return windows, nil
}

// overlapTail returns the trailing segments whose cumulative tokens fit the
// overlap budget, taken backward from the end. Segments before the last one
// are only added while the tail spans at most maxTailFraction of target.
// The whole window is never carried over.
func (c *Chunker) overlapTail(window []domain.TimedSegment, target float64) []domain.TimedSegment {
	if c.cfg.OverlapTokens <= 0 || len(window) < 2 {
		return nil
	}
	end := window[len(window)-1].End
	total := 0
	start := len(window)
	for i := len(window) - 1; i >= 1; i-- {
		t := EstimateTokens(window[i].Text)
		if total+t > c.cfg.OverlapTokens {
			break
		}
		if i < len(window)-1 && end-window[i].Start > target*maxTailFraction {
			break
		}
		total += t
		start = i
	}
	tail := make([]domain.TimedSegment, len(window)-start)
	copy(tail, window[start:])
	return tail
}

// windowChunk renders a run of segments as one chunk.
func windowChunk(segments []domain.TimedSegment) domain.Chunk {
	texts := make([]string, 0, len(segments))
	end := segments[0].End
	for _, seg := range segments {
		texts = append(texts, strings.TrimSpace(seg.Text))
		if seg.End > end {
			end = seg.End
		}
	}
	return domain.Chunk{
		Text:      strings.Join(texts, " "),
		StartTime: domain.Seconds(segments[0].Start),
		EndTime:   domain.Seconds(end),
	}
}

// usableSegments drops blank segments and rejects impossible timings.
func usableSegments(in []domain.TimedSegment) ([]domain.TimedSegment, error) {
	out := make([]domain.TimedSegment, 0, len(in))
	for i, seg := range in {
		if math.IsNaN(seg.Start) || math.IsNaN(seg.End) || seg.End < seg.Start || seg.Start < 0 {
			return nil, fmt.Errorf("segment %d has invalid timing %.3f-%.3f", i, seg.Start, seg.End)
		}
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		out = append(out, seg)
	}
	return out, nil
}

// normaliseChapters sorts chapters and fills missing end times with the
// next chapter's start (or the transcript end for the last one).
func normaliseChapters(in []domain.Chapter, segments []domain.TimedSegment) []domain.Chapter {
	if len(in) < 2 {
		return nil
	}
	chapters := make([]domain.Chapter, len(in))
	copy(chapters, in)
	sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].Start < chapters[j].Start })

	last := segments[len(segments)-1].End
	for i := range chapters {
		next := last
		if i+1 < len(chapters) {
			next = chapters[i+1].Start
		}
		if chapters[i].End <= chapters[i].Start || chapters[i].End > next {
			chapters[i].End = next
		}
	}
	return chapters
}

// assignToChapters places each segment in the chapter containing its start.
// Segments before the first chapter belong to it; segments after the last
// chapter's end belong to the last.
func assignToChapters(segments []domain.TimedSegment, chapters []domain.Chapter) [][]domain.TimedSegment {
	groups := make([][]domain.TimedSegment, len(chapters))
	idx := 0
	for _, seg := range segments {
		for idx+1 < len(chapters) && seg.Start >= chapters[idx+1].Start {
			idx++
		}
		groups[idx] = append(groups[idx], seg)
	}
	return groups
}

func tokens(segments []domain.TimedSegment) int {
	n := 0
	for _, seg := range segments {
		n += EstimateTokens(seg.Text)
	}
	return n
}

// span returns seconds from the first start to the latest end.
func span(segments []domain.TimedSegment) float64 {
	if len(segments) == 0 {
		return 0
	}
	end := segments[0].End
	for _, seg := range segments {
		if seg.End > end {
			end = seg.End
		}
	}
	return end - segments[0].Start
}

// Describe summarises the thresholds, for logs.
func (c *Chunker) Describe() string {
	return fmt.Sprintf("short<%s medium<%s windows=%s/%s budget=%d overlap=%d chapter_max=%s",
		c.cfg.ShortVideo, c.cfg.MediumVideo, c.cfg.MediumWindow, c.cfg.LongWindow,
		c.cfg.TokenBudget, c.cfg.OverlapTokens, c.cfg.ChapterMaxDuration.Round(time.Second))
}
