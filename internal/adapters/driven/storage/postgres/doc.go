// Package postgres implements the driven storage ports on PostgreSQL with
// the pgvector extension.
//
// Connections come from a pgxpool.Pool whose AfterConnect hook registers the
// pgvector codecs, so embeddings travel as pgvector.Vector values. The chunk
// table carries an HNSW index with cosine distance; similarity is reported as
// 1 - cosine distance and clamped like every other store.
//
// The vector column width is fixed when the schema is created. Opening an
// existing database with a different width fails with
// domain.ErrDimensionMismatch.
//
// Queue claims use FOR UPDATE SKIP LOCKED so several worker processes can
// share one queue.
package postgres
