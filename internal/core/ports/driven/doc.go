// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Extractor / ExtractorRegistry: Produce normalised content per content type
//   - Normaliser / NormaliserRegistry: Turn file bytes into text
//   - Chunker: Split normalised content into chunks
//   - EmbeddingService: Generates vector embeddings
//   - ChunkStore: Chunk + vector persistence and similarity search
//   - ProcessingQueue: Durable background work list
//   - ContentRepository: Content record reads and status write-back
//   - BlobStorage: Uploaded file access
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - TranscriptDeriver: On-demand transcript derivation for videos. When nil,
//     videos without a cached transcript are skipped.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, extractor, chunker or normaliser package
package driven
