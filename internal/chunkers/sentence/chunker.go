// Package sentence provides a sentence-grouping chunker for untimed text.
//
// Text is split into sentences at terminal punctuation followed by
// whitespace and at blank lines. Sentences are grouped until the next one
// would push the chunk past the size limit; each new chunk is seeded with
// trailing sentences of the previous one that fit the overlap. Sizes are
// counted in runes.
package sentence

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/coursedex/internal/chunkers/chunkmeta"
	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

var (
	sentenceEnd = regexp.MustCompile(`[.!?]+[\s]+`)
	paragraphs  = regexp.MustCompile(`\n[ \t]*\n\s*`)
)

// Chunker groups sentences into bounded chunks.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a sentence chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// Strategy returns the strategy identifier.
func (c *Chunker) Strategy() driven.ChunkStrategy {
	return driven.ChunkStrategySentence
}

// sentence is one unit of grouping.
type sentence struct {
	text      string
	runes     int
	paragraph bool // first sentence of a paragraph
}

// Chunk splits content.Text into chunks. Timed segments, when present
// without text, are flattened into text first.
func (c *Chunker) Chunk(ctx context.Context, ref domain.ContentRef, content *domain.ExtractedContent) ([]domain.Chunk, error) {
	if content.IsEmpty() {
		return nil, nil
	}

	text := content.Text
	if strings.TrimSpace(text) == "" {
		parts := make([]string, 0, len(content.Segments))
		for _, seg := range content.Segments {
			parts = append(parts, seg.Text)
		}
		text = strings.Join(parts, " ")
	}

	sentences := split(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var (
		chunks  []domain.Chunk
		current []sentence
		size    int
	)
	for i, s := range sentences {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if len(current) > 0 && size+s.sep()+s.runes > c.chunkSize {
			chunks = append(chunks, domain.Chunk{Text: join(current)})
			current = c.overlapTail(current)
			size = measure(current)
			if len(current) > 0 && size+s.sep()+s.runes > c.chunkSize {
				current, size = nil, 0
			}
		}

		if len(current) > 0 {
			size += s.sep()
		} else {
			s.paragraph = false
		}
		current = append(current, s)
		size += s.runes
	}
	chunks = append(chunks, domain.Chunk{Text: join(current)})

	return chunkmeta.Finalise(ref, string(c.Strategy()), content.Metadata, chunks), nil
}

// overlapTail returns the trailing sentences whose combined length fits
// the overlap, never the whole window.
func (c *Chunker) overlapTail(window []sentence) []sentence {
	if c.overlap == 0 || len(window) < 2 {
		return nil
	}
	total := 0
	start := len(window)
	for i := len(window) - 1; i >= 1; i-- {
		n := window[i].runes
		if total > 0 {
			n += window[i+1].sep()
		}
		if total+n > c.overlap {
			break
		}
		total += n
		start = i
	}
	tail := make([]sentence, len(window)-start)
	copy(tail, window[start:])
	if len(tail) > 0 {
		tail[0].paragraph = false
	}
	return tail
}

// split breaks text into trimmed sentences.
func split(text string) []sentence {
	var out []sentence
	for _, para := range paragraphs.Split(text, -1) {
		first := true
		start := 0
		for _, loc := range sentenceEnd.FindAllStringIndex(para, -1) {
			if s := strings.TrimSpace(para[start:loc[1]]); s != "" {
				out = append(out, newSentence(s, first))
				first = false
			}
			start = loc[1]
		}
		if s := strings.TrimSpace(para[start:]); s != "" {
			out = append(out, newSentence(s, first))
		}
	}
	return out
}

// sep is the separator length written before s inside a window.
func (s sentence) sep() int {
	if s.paragraph {
		return 2
	}
	return 1
}

func newSentence(s string, paragraph bool) sentence {
	return sentence{text: s, runes: utf8.RuneCountInString(s), paragraph: paragraph}
}

func join(window []sentence) string {
	var b strings.Builder
	for i, s := range window {
		if i > 0 {
			if s.paragraph {
				b.WriteString("\n\n")
			} else {
				b.WriteString(" ")
			}
		}
		b.WriteString(s.text)
	}
	return b.String()
}

// measure counts runes of the window joined with single separators.
func measure(window []sentence) int {
	if len(window) == 0 {
		return 0
	}
	n := 0
	for i, s := range window {
		if i > 0 {
			n += s.sep()
		}
		n += s.runes
	}
	return n
}
