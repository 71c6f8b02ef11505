// Package app assembles the coursedex object graph from settings.
//
// It is the only place that knows which adapters back the core ports:
// SQLite or Postgres for storage, the local filesystem or S3 for blobs, and
// Ollama or an OpenAI-compatible API for embeddings.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/coursedex/internal/adapters/driven/blob/local"
	"github.com/custodia-labs/coursedex/internal/adapters/driven/blob/s3"
	"github.com/custodia-labs/coursedex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/coursedex/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/coursedex/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/coursedex/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/coursedex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/coursedex/internal/adapters/driven/transcript/captions"
	"github.com/custodia-labs/coursedex/internal/chunkers"
	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/core/services"
	"github.com/custodia-labs/coursedex/internal/extractors"
	"github.com/custodia-labs/coursedex/internal/logger"
	"github.com/custodia-labs/coursedex/internal/normalisers"
)

// store is the set of ports a relational backend provides.
type store interface {
	ChunkStore() driven.ChunkStore
	Queue() driven.ProcessingQueue
	ContentRepository() driven.ContentRepository
	ContentWriter() driven.ContentWriter
	Ping(ctx context.Context) error
	Close() error
}

// App holds the wired services.
type App struct {
	Settings  *domain.AppSettings
	Indexer   *services.Indexer
	Retriever *services.Retriever
	Importer  *services.ImportService
	Queue     *services.QueueService
	Embedder  *services.EmbeddingGenerator

	store     store
	embedding driven.EmbeddingService
}

type options struct {
	configStore driven.ConfigStore
}

// Option configures New.
type Option func(*options)

// WithConfigStore replaces the TOML config file.
func WithConfigStore(cs driven.ConfigStore) Option {
	return func(o *options) {
		o.configStore = cs
	}
}

// New loads settings from the config file at configPath (empty selects
// ~/.coursedex/config.toml) and connects every adapter.
func New(ctx context.Context, configPath string, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.configStore == nil {
		cs, err := file.NewConfigStore(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		o.configStore = cs
	}

	settingsService := services.NewSettingsService(o.configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("resolve settings: %w", err)
	}
	if err := settingsService.Validate(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return Build(ctx, settings)
}

// Build connects the adapters described by settings and wires the services.
func Build(ctx context.Context, settings *domain.AppSettings) (*App, error) {
	log := logger.Component("app")

	st, err := openStore(ctx, settings.Storage)
	if err != nil {
		return nil, err
	}

	blobs, err := openBlobs(ctx, settings)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	embedding, err := openEmbedding(settings.Embedding)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	selector, err := chunkers.NewDefaultSelector(settings.Chunking)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("build chunkers: %w", err)
	}

	registry := extractors.Defaults(extractors.Dependencies{
		Content:     st.ContentRepository(),
		Blobs:       blobs,
		Normalisers: normalisers.Defaults(),
		Transcripts: captions.New(blobs),
	})

	embedder := services.NewEmbeddingGenerator(embedding, settings.Embedding)
	indexer := services.NewIndexer(registry, selector, embedder, st.ChunkStore(), st.Queue(), st.ContentRepository())

	log.Debug("application wired",
		"storage", settings.Storage.Driver,
		"blob", settings.Blob.Provider,
		"embedding", settings.Embedding.Provider,
		"model", embedder.ModelName(),
		"dimensions", embedder.Dimensions())

	return &App{
		Settings:  settings,
		Indexer:   indexer,
		Retriever: services.NewRetriever(embedder, st.ChunkStore()),
		Importer:  services.NewImportService(st.ContentWriter(), blobs, indexer),
		Queue:     services.NewQueueService(st.Queue(), st.ContentRepository()),
		Embedder:  embedder,
		store:     st,
		embedding: embedding,
	}, nil
}

// WorkerPool creates a worker pool over the queue. A positive count
// overrides worker.count.
func (a *App) WorkerPool(count int) *services.WorkerPool {
	ws := a.Settings.Worker
	if count > 0 {
		ws.Count = count
	}
	return services.NewWorkerPool(a.Indexer, a.store.Queue(), a.Embedder, ws)
}

// Ping checks the relational store.
func (a *App) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}

// Close releases the embedding client and the store.
func (a *App) Close() error {
	var errs []error
	if a.embedding != nil {
		errs = append(errs, a.embedding.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg domain.StorageSettings) (store, error) {
	switch cfg.Driver {
	case domain.StorageDriverPostgres:
		st, err := postgres.NewStore(ctx, cfg.PostgresDSN, cfg.VectorDimensions)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, nil
	case domain.StorageDriverSQLite, "":
		st, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: storage driver %q", domain.ErrInvalidInput, cfg.Driver)
	}
}

func openBlobs(ctx context.Context, settings *domain.AppSettings) (driven.BlobStorage, error) {
	switch settings.Blob.Provider {
	case domain.BlobProviderS3:
		blobs, err := s3.New(ctx, settings.Blob.S3)
		if err != nil {
			return nil, fmt.Errorf("open s3 storage: %w", err)
		}
		return blobs, nil
	case domain.BlobProviderLocal, "":
		root, err := blobRoot(settings)
		if err != nil {
			return nil, err
		}
		blobs, err := local.New(root)
		if err != nil {
			return nil, fmt.Errorf("open local storage: %w", err)
		}
		return blobs, nil
	default:
		return nil, fmt.Errorf("%w: blob provider %q", domain.ErrInvalidInput, settings.Blob.Provider)
	}
}

// blobRoot defaults to <data_dir>/files, or ~/.coursedex/files.
func blobRoot(settings *domain.AppSettings) (string, error) {
	if settings.Blob.Root != "" {
		return settings.Blob.Root, nil
	}
	if settings.Storage.DataDir != "" {
		return filepath.Join(settings.Storage.DataDir, "files"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".coursedex", "files"), nil
}

// openEmbedding returns nil without error when the provider lacks
// credentials, so commands that never embed still work.
func openEmbedding(cfg domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case domain.AIProviderOllama:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimensions,
		}), nil
	case domain.AIProviderOpenAI:
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimensions,
		})
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			logger.Component("app").Warn("embedding backend not configured", "error", err)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("open openai embeddings: %w", err)
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrInvalidInput, cfg.Provider)
	}
}
