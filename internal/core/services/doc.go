// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The indexing pipeline (Indexer), the background WorkerPool, the
// Retriever and the SettingsService live here, together with the
// EmbeddingGenerator that applies batching, retries, rate limiting and
// circuit breaking around the embedding backend.
package services
