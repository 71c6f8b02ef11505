package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coursedex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/coursedex/internal/chunkers"
	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driving"
	"github.com/custodia-labs/coursedex/internal/core/services"
	"github.com/custodia-labs/coursedex/internal/extractors"
	"github.com/custodia-labs/coursedex/internal/normalisers"
)

// --- Test doubles ---

// topicEmbedding implements driven.EmbeddingService with two topic axes.
type topicEmbedding struct{}

func (topicEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := []float32{0.1, 0.1}
		if bytes.Contains([]byte(t), []byte("golang")) {
			v[0] = 1
		}
		if bytes.Contains([]byte(t), []byte("history")) {
			v[1] = 1
		}
		out[i] = v
	}
	return out, nil
}

func (topicEmbedding) Dimensions() int { return 2 }

func (topicEmbedding) ModelName() string { return "topic" }

func (topicEmbedding) Ping(context.Context) error { return nil }

func (topicEmbedding) Close() error { return nil }

// testEnv holds the memory stores behind the installed services.
type testEnv struct {
	content *memory.ContentStore
	queue   *memory.Queue
	chunks  *memory.ChunkStore
	blobs   *memory.BlobStore
}

// setupTestServices installs services backed by memory adapters and
// returns a cleanup function restoring the previous state.
func setupTestServices(t *testing.T) (*testEnv, func()) {
	t.Helper()

	env := &testEnv{
		content: memory.NewContentStore(),
		queue:   memory.NewQueue(),
		chunks:  memory.NewChunkStore(),
		blobs:   memory.NewBlobStore(),
	}

	settings := domain.DefaultAppSettings()
	settings.Embedding.RequestsPerSecond = 0
	embedder := services.NewEmbeddingGenerator(topicEmbedding{}, settings.Embedding)

	selector, err := chunkers.NewDefaultSelector(settings.Chunking)
	require.NoError(t, err)
	registry := extractors.Defaults(extractors.Dependencies{
		Content:     env.content,
		Blobs:       env.blobs,
		Normalisers: normalisers.Defaults(),
	})
	indexer := services.NewIndexer(registry, selector, embedder, env.chunks, env.queue, env.content)

	SetServices(&Services{
		Indexer:   indexer,
		Retriever: services.NewRetriever(embedder, env.chunks),
		Importer:  services.NewImportService(env.content, env.blobs, indexer),
		Queue:     services.NewQueueService(env.queue, env.content),
		NewWorkerPool: func(count int) driving.WorkerPool {
			ws := settings.Worker
			ws.Count = max(count, 1)
			return services.NewWorkerPool(indexer, env.queue, embedder, ws)
		},
	})

	return env, func() { SetServices(nil) }
}

func (e *testEnv) addCourse(t *testing.T, id, body string) {
	t.Helper()
	require.NoError(t, e.content.SaveCourse(context.Background(), &domain.Course{
		ID:      id,
		Title:   "Course " + id,
		Lessons: []domain.Lesson{{Title: "Lesson", Format: domain.LessonFormatText, Body: body}},
	}))
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// --- Root command ---

func TestRootCmd_BuildsServicesOnce(t *testing.T) {
	defer SetServices(nil)

	builds := 0
	closed := 0
	SetBuilder(func(_ context.Context, path string) (*Services, error) {
		builds++
		assert.Equal(t, "/tmp/custom.toml", path)
		return &Services{
			Queue: services.NewQueueService(memory.NewQueue(), memory.NewContentStore()),
			Close: func() error {
				closed++
				return nil
			},
		}, nil
	})
	defer SetBuilder(nil)
	defer func() { configPath = "" }()

	out, err := executeCommand(t, "--config", "/tmp/custom.toml", "queue", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total:      0")
	assert.Equal(t, 1, builds)
	assert.Equal(t, 1, closed)
}

func TestRootCmd_BuilderError(t *testing.T) {
	defer SetServices(nil)
	SetBuilder(func(context.Context, string) (*Services, error) {
		return nil, errors.New("no database")
	})
	defer SetBuilder(nil)

	_, err := executeCommand(t, "queue", "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database")
}

func TestRootCmd_InvalidLogFormat(t *testing.T) {
	defer func() { logFormat = "text" }()

	_, err := executeCommand(t, "--log-format", "xml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log format")
}

func TestParseRef(t *testing.T) {
	ref, err := parseRef([]string{"Video", "v1"})
	require.NoError(t, err)
	assert.Equal(t, domain.ContentRef{ID: "v1", Type: domain.ContentTypeVideo}, ref)

	_, err = parseRef([]string{"podcast", "p1"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = parseRef([]string{"book", "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = parseRef([]string{"book"})
	assert.Error(t, err)
}

// captureOutput runs fn with rootCmd writing into a buffer.
func captureOutput(fn func()) string {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	fn()
	return buf.String()
}
