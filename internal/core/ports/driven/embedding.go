package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations may include:
//   - OpenAI or any OpenAI-compatible API (text-embedding-3-small, ...)
//   - Ollama (nomic-embed-text, all-minilm)
//
// Batching, retries and timeouts are applied by the core's embedding
// generator; implementations perform exactly one backend call per EmbedBatch.
type EmbeddingService interface {
	// EmbedBatch generates one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	// This is determined by the model and must match the storage column width.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
