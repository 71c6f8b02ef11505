// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - ChunkStore: Chunk and embedding persistence with cosine similarity search
//   - ProcessingQueue: Durable indexing work queue with atomic claims
//   - ContentRepository / ContentWriter: Book, video and course records with
//     processing status columns
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Vectors
//
// Embeddings are stored as little-endian float32 BLOBs. Similarity is computed
// in Go over the rows matching the search scope, which suits per-user corpora.
// Large shared corpora should use the postgres adapter and its HNSW index.
//
// # Data Location
//
// By default, the database is stored at ~/.coursedex/data/coursedex.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode; queue claims are single conditional UPDATE statements.
package sqlite
