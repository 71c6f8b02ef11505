package services

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyStorageDriver      = "storage.driver"
	keyStorageDataDir     = "storage.data_dir"
	keyStoragePostgresDSN = "storage.postgres_dsn"
	keyBlobProvider       = "blob.provider"
	keyBlobRoot           = "blob.root"
	keyS3Endpoint         = "blob.s3.endpoint"
	keyS3Bucket           = "blob.s3.bucket"
	keyS3AccessKey        = "blob.s3.access_key"
	keyS3SecretKey        = "blob.s3.secret_key"
	keyS3UseSSL           = "blob.s3.use_ssl"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedDimensions    = "embedding.dimensions"
	keyEmbedBatchSize     = "embedding.batch_size"
	keyEmbedMaxRetries    = "embedding.max_retries"
	keyEmbedTimeout       = "embedding.timeout"
	keyEmbedRPS           = "embedding.requests_per_second"
	keyEmbedQueryPrefix   = "embedding.query_prefix"
	keyEmbedDocPrefix     = "embedding.document_prefix"
	keyChunkSize          = "chunking.chunk_size"
	keyChunkOverlap       = "chunking.overlap"
	keyChunkTokenBudget   = "chunking.token_budget"
	keyChunkOverlapTokens = "chunking.overlap_tokens"
	keyChunkShortVideo    = "chunking.short_video"
	keyChunkMediumVideo   = "chunking.medium_video"
	keyChunkMediumWindow  = "chunking.medium_window"
	keyChunkLongWindow    = "chunking.long_window"
	keyChunkChapterMax    = "chunking.chapter_max_duration"
	keyWorkerCount        = "worker.count"
	keyWorkerIdle         = "worker.idle_interval"
	keyWorkerItemTimeout  = "worker.item_timeout"

	envOpenAIAPIKey = "OPENAI_API_KEY"
)

// embeddingDefaults holds the per-provider model defaults.
var embeddingDefaults = map[domain.AIProvider]struct {
	model       string
	dimensions  int
	queryPrefix string
	docPrefix   string
}{
	domain.AIProviderOllama: {"nomic-embed-text", 768, "search_query: ", "search_document: "},
	domain.AIProviderOpenAI: {"text-embedding-3-small", 1536, "", ""},
}

// SettingsService resolves application settings from the config store.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get returns the effective settings. Missing keys take defaults; provider
// defaults follow the configured embedding provider.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	provider := domain.AIProvider(s.getString(keyEmbedProvider, string(defaults.Embedding.Provider)))
	embedDefaults, known := embeddingDefaults[provider]
	if !known {
		embedDefaults = embeddingDefaults[defaults.Embedding.Provider]
	}

	apiKey := s.configStore.GetString(keyEmbedAPIKey)
	if apiKey == "" && provider == domain.AIProviderOpenAI {
		apiKey = s.getenv(envOpenAIAPIKey)
	}

	dims := s.getInt(keyEmbedDimensions, embedDefaults.dimensions)

	settings := &domain.AppSettings{
		Storage: domain.StorageSettings{
			Driver:           domain.StorageDriver(s.getString(keyStorageDriver, string(defaults.Storage.Driver))),
			DataDir:          s.configStore.GetString(keyStorageDataDir), // Empty means ~/.coursedex/data
			PostgresDSN:      s.configStore.GetString(keyStoragePostgresDSN),
			VectorDimensions: dims,
		},
		Blob: domain.BlobSettings{
			Provider: domain.BlobProvider(s.getString(keyBlobProvider, string(defaults.Blob.Provider))),
			Root:     s.configStore.GetString(keyBlobRoot),
			S3: domain.S3Settings{
				Endpoint:  s.configStore.GetString(keyS3Endpoint),
				Bucket:    s.configStore.GetString(keyS3Bucket),
				AccessKey: s.configStore.GetString(keyS3AccessKey),
				SecretKey: s.configStore.GetString(keyS3SecretKey),
				UseSSL:    s.getBool(keyS3UseSSL, true),
			},
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          provider,
			Model:             s.getString(keyEmbedModel, embedDefaults.model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - adapters know theirs
			APIKey:            apiKey,
			Dimensions:        dims,
			BatchSize:         s.getInt(keyEmbedBatchSize, defaults.Embedding.BatchSize),
			MaxRetries:        s.getInt(keyEmbedMaxRetries, defaults.Embedding.MaxRetries),
			Timeout:           s.getDuration(keyEmbedTimeout, defaults.Embedding.Timeout),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, defaults.Embedding.RequestsPerSecond),
			QueryPrefix:       s.getStringAllowEmpty(keyEmbedQueryPrefix, embedDefaults.queryPrefix),
			DocumentPrefix:    s.getStringAllowEmpty(keyEmbedDocPrefix, embedDefaults.docPrefix),
		},
		Chunking: domain.ChunkingSettings{
			ChunkSize:          s.getInt(keyChunkSize, defaults.Chunking.ChunkSize),
			Overlap:            s.getIntAllowZero(keyChunkOverlap, defaults.Chunking.Overlap),
			TokenBudget:        s.getInt(keyChunkTokenBudget, defaults.Chunking.TokenBudget),
			OverlapTokens:      s.getIntAllowZero(keyChunkOverlapTokens, defaults.Chunking.OverlapTokens),
			ShortVideo:         s.getDuration(keyChunkShortVideo, defaults.Chunking.ShortVideo),
			MediumVideo:        s.getDuration(keyChunkMediumVideo, defaults.Chunking.MediumVideo),
			MediumWindow:       s.getDuration(keyChunkMediumWindow, defaults.Chunking.MediumWindow),
			LongWindow:         s.getDuration(keyChunkLongWindow, defaults.Chunking.LongWindow),
			ChapterMaxDuration: s.getDuration(keyChunkChapterMax, defaults.Chunking.ChapterMaxDuration),
		},
		Worker: domain.WorkerSettings{
			Count:        s.getInt(keyWorkerCount, defaults.Worker.Count),
			IdleInterval: s.getDuration(keyWorkerIdle, defaults.Worker.IdleInterval),
			ItemTimeout:  s.getDuration(keyWorkerItemTimeout, defaults.Worker.ItemTimeout),
		},
	}

	return settings, nil
}

// Validate reports the first invalid or missing setting.
func (s *SettingsService) Validate(settings *domain.AppSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: settings are nil", domain.ErrInvalidInput)
	}

	// Storage
	if !settings.Storage.Driver.IsValid() {
		return fmt.Errorf("%w: unknown storage driver %q", domain.ErrInvalidInput, settings.Storage.Driver)
	}
	if settings.Storage.Driver == domain.StorageDriverPostgres && strings.TrimSpace(settings.Storage.PostgresDSN) == "" {
		return fmt.Errorf("%w: %s is required for the postgres driver", domain.ErrInvalidInput, keyStoragePostgresDSN)
	}

	// Blob storage
	switch settings.Blob.Provider {
	case domain.BlobProviderLocal:
	case domain.BlobProviderS3:
		if settings.Blob.S3.Endpoint == "" || settings.Blob.S3.Bucket == "" {
			return fmt.Errorf("%w: %s and %s are required for the s3 provider",
				domain.ErrInvalidInput, keyS3Endpoint, keyS3Bucket)
		}
	default:
		return fmt.Errorf("%w: unknown blob provider %q", domain.ErrInvalidInput, settings.Blob.Provider)
	}

	// Embedding
	e := settings.Embedding
	if !e.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, e.Provider)
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" && e.BaseURL == "" {
		return fmt.Errorf("%w: %s or %s is required for %s",
			domain.ErrEmbeddingUnavailable, keyEmbedAPIKey, envOpenAIAPIKey, e.Provider)
	}
	if e.Dimensions <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyEmbedDimensions)
	}
	if settings.Storage.VectorDimensions != e.Dimensions {
		return fmt.Errorf("%w: storage vector width %d, embedding model %d",
			domain.ErrDimensionMismatch, settings.Storage.VectorDimensions, e.Dimensions)
	}
	if e.BatchSize <= 0 || e.MaxRetries <= 0 || e.Timeout <= 0 {
		return fmt.Errorf("%w: embedding batch size, retries and timeout must be positive", domain.ErrInvalidInput)
	}

	// Chunking
	c := settings.Chunking
	if c.ChunkSize <= 0 || c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", domain.ErrInvalidInput, c.Overlap, c.ChunkSize)
	}
	if c.TokenBudget <= 0 || c.OverlapTokens < 0 || c.OverlapTokens >= c.TokenBudget {
		return fmt.Errorf("%w: overlap tokens %d must be in [0, %d)", domain.ErrInvalidInput, c.OverlapTokens, c.TokenBudget)
	}
	if c.ShortVideo > c.MediumVideo {
		return fmt.Errorf("%w: %s exceeds %s", domain.ErrInvalidInput, keyChunkShortVideo, keyChunkMediumVideo)
	}
	if c.MediumWindow <= 0 || c.LongWindow <= 0 || c.ChapterMaxDuration <= 0 {
		return fmt.Errorf("%w: chunking windows must be positive", domain.ErrInvalidInput)
	}

	// Worker
	if settings.Worker.Count < 1 || settings.Worker.Count > domain.MaxWorkerCount {
		return fmt.Errorf("%w: %s must be between 1 and %d", domain.ErrInvalidInput, keyWorkerCount, domain.MaxWorkerCount)
	}

	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := strings.TrimSpace(s.configStore.GetString(key))
	if val == "" {
		return defaultVal
	}
	return val
}

// getStringAllowEmpty returns defaultVal only when the key is absent,
// so an explicit "" disables a prefix.
func (s *SettingsService) getStringAllowEmpty(key, defaultVal string) string {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetString(key)
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetDuration(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}
