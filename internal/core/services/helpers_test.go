package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coursedex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/coursedex/internal/chunkers"
	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/extractors"
	"github.com/custodia-labs/coursedex/internal/normalisers"
)

// --- Stub embedding backend ---

var errBackendDown = errors.New("backend down")

// stubEmbedding implements driven.EmbeddingService for testing.
type stubEmbedding struct {
	mu       sync.Mutex
	dims     int
	calls    int
	batches  [][]string
	failures int   // number of leading calls that fail with err
	err      error // returned for failing calls
	pingErr  error
	embed    func(text string) []float32
}

var _ driven.EmbeddingService = (*stubEmbedding)(nil)

func newStubEmbedding() *stubEmbedding {
	return &stubEmbedding{dims: 4, err: errBackendDown}
}

func (s *stubEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.batches = append(s.batches, append([]string(nil), texts...))
	if s.failures < 0 || s.calls <= s.failures {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if s.embed != nil {
			out[i] = s.embed(t)
			continue
		}
		out[i] = keywordVector(t)
	}
	return out, nil
}

func (s *stubEmbedding) Dimensions() int { return s.dims }

func (s *stubEmbedding) ModelName() string { return "stub" }

func (s *stubEmbedding) Ping(context.Context) error { return s.pingErr }

func (s *stubEmbedding) Close() error { return nil }

func (s *stubEmbedding) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// keywordVector maps text onto four topic axes so similarity is predictable.
func keywordVector(text string) []float32 {
	text = strings.ToLower(text)
	v := []float32{0.05, 0.05, 0.05, 0.05}
	for i, word := range []string{"golang", "python", "history", "music"} {
		v[i] += float32(strings.Count(text, word))
	}
	return v
}

// --- Pipeline fixture ---

type pipeline struct {
	content   *memory.ContentStore
	blobs     *memory.BlobStore
	chunks    *memory.ChunkStore
	queue     *memory.Queue
	backend   *stubEmbedding
	embedder  *EmbeddingGenerator
	indexer   *Indexer
	retriever *Retriever
}

func newPipeline(t *testing.T, backend *stubEmbedding) *pipeline {
	t.Helper()

	p := &pipeline{
		content: memory.NewContentStore(),
		blobs:   memory.NewBlobStore(),
		chunks:  memory.NewChunkStore(),
		queue:   memory.NewQueue(),
		backend: backend,
	}

	settings := domain.DefaultAppSettings()
	settings.Embedding.RequestsPerSecond = 0
	p.embedder = NewEmbeddingGenerator(backend, settings.Embedding, WithRetryBaseDelay(time.Millisecond))

	chunking := settings.Chunking
	chunking.ChunkSize = 120
	chunking.Overlap = 20
	selector, err := chunkers.NewDefaultSelector(chunking)
	require.NoError(t, err)

	registry := extractors.Defaults(extractors.Dependencies{
		Content:     p.content,
		Blobs:       p.blobs,
		Normalisers: normalisers.Defaults(),
	})

	p.indexer = NewIndexer(registry, selector, p.embedder, p.chunks, p.queue, p.content)
	p.retriever = NewRetriever(p.embedder, p.chunks)
	return p
}

func (p *pipeline) addCourse(t *testing.T, id, owner string, bodies ...string) domain.ContentRef {
	t.Helper()
	course := &domain.Course{ID: id, OwnerID: owner, Title: "Course " + id}
	for i, body := range bodies {
		course.Lessons = append(course.Lessons, domain.Lesson{
			Title:    "Lesson",
			Format:   domain.LessonFormatText,
			Body:     body,
			Position: i,
		})
	}
	require.NoError(t, p.content.SaveCourse(context.Background(), course))
	return domain.ContentRef{ID: id, Type: domain.ContentTypeCourse}
}

func (p *pipeline) addBook(t *testing.T, id, path string, data []byte) domain.ContentRef {
	t.Helper()
	ctx := context.Background()
	if data != nil {
		require.NoError(t, p.blobs.Upload(ctx, data, path))
	}
	require.NoError(t, p.content.SaveBook(ctx, &domain.Book{ID: id, Title: "Book " + id, FilePath: path}))
	return domain.ContentRef{ID: id, Type: domain.ContentTypeBook}
}

func (p *pipeline) status(t *testing.T, ref domain.ContentRef) *domain.ContentStatus {
	t.Helper()
	st, err := p.content.GetStatus(context.Background(), ref)
	require.NoError(t, err)
	return st
}

const longLesson = "Golang has goroutines. Channels connect goroutines in golang programs. " +
	"The scheduler multiplexes goroutines onto threads. Interfaces are satisfied implicitly. " +
	"Errors are values in golang. The standard library is broad and well documented. " +
	"Modules pin dependency versions."
