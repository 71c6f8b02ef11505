package domain

import "time"

// StorageDriver selects the relational store backing chunks, queue and records.
type StorageDriver string

// Available storage drivers.
const (
	// StorageDriverSQLite is the embedded pure-Go SQLite store.
	StorageDriverSQLite StorageDriver = "sqlite"

	// StorageDriverPostgres is PostgreSQL with the pgvector extension.
	StorageDriverPostgres StorageDriver = "postgres"
)

// IsValid returns true if the storage driver is recognised.
func (d StorageDriver) IsValid() bool {
	return d == StorageDriverSQLite || d == StorageDriverPostgres
}

// BlobProvider selects where uploaded files are stored.
type BlobProvider string

// Available blob providers.
const (
	// BlobProviderLocal stores files under a local directory.
	BlobProviderLocal BlobProvider = "local"

	// BlobProviderS3 stores files in an S3-compatible bucket.
	BlobProviderS3 BlobProvider = "s3"
)

// IsValid returns true if the blob provider is recognised.
func (p BlobProvider) IsValid() bool {
	return p == BlobProviderLocal || p == BlobProviderS3
}

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI or any OpenAI-compatible API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// RequiresAPIKey returns true if the provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// StorageSettings configures the relational store.
type StorageSettings struct {
	Driver      StorageDriver
	DataDir     string
	PostgresDSN string

	// VectorDimensions is the width of the vector column.
	// It must match the embedding model.
	VectorDimensions int
}

// S3Settings configures the S3-compatible blob provider.
type S3Settings struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// BlobSettings configures the blob storage provider.
type BlobSettings struct {
	Provider BlobProvider
	Root     string
	S3       S3Settings
}

// EmbeddingSettings configures the embedding backend and generator.
type EmbeddingSettings struct {
	Provider          AIProvider
	Model             string
	BaseURL           string
	APIKey            string
	Dimensions        int
	BatchSize         int
	MaxRetries        int
	Timeout           time.Duration
	RequestsPerSecond float64
	QueryPrefix       string
	DocumentPrefix    string
}

// IsConfigured returns true if a provider is set and has its credentials.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings configures both chunking strategies.
type ChunkingSettings struct {
	// ChunkSize is the sentence chunker target size in characters.
	ChunkSize int
	// Overlap is the sentence chunker overlap in characters.
	Overlap int

	// TokenBudget is the maximum estimated tokens per time window.
	TokenBudget int
	// OverlapTokens bounds the overlap tail carried into the next window.
	OverlapTokens int
	// ShortVideo is the duration below which a video is one chunk.
	ShortVideo time.Duration
	// MediumVideo is the duration below which medium windows are used.
	MediumVideo time.Duration
	// MediumWindow is the window length for medium videos.
	MediumWindow time.Duration
	// LongWindow is the window length for long videos.
	LongWindow time.Duration
	// ChapterMaxDuration is the longest chapter kept as a single chunk.
	ChapterMaxDuration time.Duration
}

// WorkerSettings configures the background worker pool.
type WorkerSettings struct {
	Count        int
	IdleInterval time.Duration
	ItemTimeout  time.Duration
}

// AppSettings is the full application configuration.
type AppSettings struct {
	Storage   StorageSettings
	Blob      BlobSettings
	Embedding EmbeddingSettings
	Chunking  ChunkingSettings
	Worker    WorkerSettings
}

// Worker pool bounds.
const (
	DefaultWorkerCount = 2
	MaxWorkerCount     = 8
)

// DefaultChunkingSettings returns the chunking defaults.
func DefaultChunkingSettings() ChunkingSettings {
	return ChunkingSettings{
		ChunkSize:          1000,
		Overlap:            200,
		TokenBudget:        800,
		OverlapTokens:      100,
		ShortVideo:         10 * time.Minute,
		MediumVideo:        30 * time.Minute,
		MediumWindow:       3 * time.Minute,
		LongWindow:         5 * time.Minute,
		ChapterMaxDuration: 15 * time.Minute,
	}
}

// DefaultAppSettings returns sensible defaults for all settings.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Storage: StorageSettings{
			Driver:           StorageDriverSQLite,
			VectorDimensions: 768,
		},
		Blob: BlobSettings{
			Provider: BlobProviderLocal,
		},
		Embedding: EmbeddingSettings{
			Provider:          AIProviderOllama,
			Model:             "nomic-embed-text",
			Dimensions:        768,
			BatchSize:         50,
			MaxRetries:        3,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			QueryPrefix:       "search_query: ",
			DocumentPrefix:    "search_document: ",
		},
		Chunking: DefaultChunkingSettings(),
		Worker: WorkerSettings{
			Count:        DefaultWorkerCount,
			IdleInterval: 10 * time.Second,
			ItemTimeout:  30 * time.Minute,
		},
	}
}
