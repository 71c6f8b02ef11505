package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/coursedex/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// Ensure chunkStore implements the interface.
var _ driven.ChunkStore = (*chunkStore)(nil)

// chunkStore wraps Store to implement driven.ChunkStore.
type chunkStore struct {
	store *Store
}

const chunkColumns = 11

// Upsert replaces all chunks of the content inside one transaction.
func (c *chunkStore) Upsert(ctx context.Context, ref domain.ContentRef, chunks []domain.Chunk, metadata map[string]any) error {
	if err := ref.Validate(); err != nil {
		return &domain.StorageError{Ref: ref, Op: "upsert", Err: err}
	}
	if err := c.validate(chunks); err != nil {
		return &domain.StorageError{Ref: ref, Op: "upsert", Err: err}
	}

	owner := ""
	if len(chunks) > 0 {
		owner = vecmath.OwnerOf(metadata, chunks[0].Metadata)
	}
	now := c.store.now()

	tx, err := c.store.pool.Begin(ctx)
	if err != nil {
		return &domain.StorageError{Ref: ref, Op: "upsert", Err: fmt.Errorf("beginning transaction: %w", err)}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		"DELETE FROM chunks WHERE content_id = $1 AND content_type = $2", ref.ID, string(ref.Type)); err != nil {
		return &domain.StorageError{Ref: ref, Op: "upsert", Err: fmt.Errorf("deleting old chunks: %w", err)}
	}

	for start := 0; start < len(chunks); start += driven.UpsertBatchSize {
		end := min(start+driven.UpsertBatchSize, len(chunks))
		batch := chunks[start:end]

		args := make([]any, 0, len(batch)*chunkColumns)
		for _, ch := range batch {
			id := ch.ID
			if id == "" {
				id = uuid.New().String()
			}
			meta, err := marshalJSON(ch.Metadata, "{}")
			if err != nil {
				return &domain.StorageError{Ref: ref, Op: "upsert", Err: fmt.Errorf("marshalling chunk metadata: %w", err)}
			}
			args = append(args,
				id, ref.ID, string(ref.Type), ch.ChunkIndex, owner, ch.Text,
				ch.StartTime, ch.EndTime, pgvector.NewVector(ch.Embedding), meta, now,
			)
		}

		query := `INSERT INTO chunks (id, content_id, content_type, chunk_index, owner_id, text,
			start_time, end_time, embedding, metadata, created_at)
			VALUES ` + placeholders(len(batch), chunkColumns)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return &domain.StorageError{Ref: ref, Op: "upsert", Err: fmt.Errorf("inserting chunks %d-%d: %w", start, end-1, err)}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &domain.StorageError{Ref: ref, Op: "upsert", Err: fmt.Errorf("committing chunks: %w", err)}
	}
	return nil
}

// validate checks the whole set against the vector column before writing.
func (c *chunkStore) validate(chunks []domain.Chunk) error {
	seen := make(map[int]bool, len(chunks))
	for _, ch := range chunks {
		if len(ch.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %d has no embedding", domain.ErrInvalidInput, ch.ChunkIndex)
		}
		if len(ch.Embedding) != c.store.dimensions {
			return fmt.Errorf("%w: chunk %d has %d dimensions, column is vector(%d)",
				domain.ErrDimensionMismatch, ch.ChunkIndex, len(ch.Embedding), c.store.dimensions)
		}
		if seen[ch.ChunkIndex] {
			return fmt.Errorf("%w: duplicate chunk index %d", domain.ErrAlreadyExists, ch.ChunkIndex)
		}
		seen[ch.ChunkIndex] = true
	}
	return nil
}

// Delete removes all chunks of the content.
func (c *chunkStore) Delete(ctx context.Context, ref domain.ContentRef) error {
	_, err := c.store.pool.Exec(ctx,
		"DELETE FROM chunks WHERE content_id = $1 AND content_type = $2", ref.ID, string(ref.Type))
	if err != nil {
		return &domain.StorageError{Ref: ref, Op: "delete", Err: err}
	}
	return nil
}

// Count returns the number of chunks stored for the content.
func (c *chunkStore) Count(ctx context.Context, ref domain.ContentRef) (int, error) {
	var n int
	err := c.store.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM chunks WHERE content_id = $1 AND content_type = $2",
		ref.ID, string(ref.Type)).Scan(&n)
	if err != nil {
		return 0, &domain.StorageError{Ref: ref, Op: "count", Err: err}
	}
	return n, nil
}

// List returns the chunks of the content ordered by index.
func (c *chunkStore) List(ctx context.Context, ref domain.ContentRef) ([]domain.Chunk, error) {
	rows, err := c.store.pool.Query(ctx, `
		SELECT id, content_id, content_type, chunk_index, text, start_time, end_time, metadata, embedding
		FROM chunks WHERE content_id = $1 AND content_type = $2
		ORDER BY chunk_index`, ref.ID, string(ref.Type))
	if err != nil {
		return nil, &domain.StorageError{Ref: ref, Op: "list", Err: err}
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var (
			ch          domain.Chunk
			contentType string
			meta        []byte
			vec         pgvector.Vector
		)
		if err := rows.Scan(&ch.ID, &ch.ContentID, &contentType, &ch.ChunkIndex, &ch.Text,
			&ch.StartTime, &ch.EndTime, &meta, &vec); err != nil {
			return nil, &domain.StorageError{Ref: ref, Op: "list", Err: err}
		}
		ch.ContentType = domain.ContentType(contentType)
		ch.Embedding = vec.Slice()
		if ch.Metadata, err = unmarshalMap(meta); err != nil {
			return nil, &domain.StorageError{Ref: ref, Op: "list", Err: err}
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Ref: ref, Op: "list", Err: err}
	}
	return out, nil
}

// Search ranks chunks in scope by cosine distance using the HNSW index.
func (c *chunkStore) Search(ctx context.Context, query []float32, scope domain.SearchScope, topK int) ([]domain.SearchHit, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	if len(query) != c.store.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, stored chunks have %d",
			domain.ErrDimensionMismatch, len(query), c.store.dimensions)
	}

	args := []any{pgvector.NewVector(query)}
	where, args := scopeClause(scope, args)
	sql := `
		SELECT id, content_id, content_type, chunk_index, text, start_time, end_time, metadata,
			1 - (embedding <=> $1) AS similarity
		FROM chunks` + where + `
		ORDER BY embedding <=> $1, content_id, chunk_index`
	if topK > 0 {
		args = append(args, topK)
		sql += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := c.store.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "search", Err: err}
	}
	defer rows.Close()

	var hits []domain.SearchHit
	for rows.Next() {
		var (
			ch          domain.Chunk
			contentType string
			meta        []byte
			similarity  float64
		)
		if err := rows.Scan(&ch.ID, &ch.ContentID, &contentType, &ch.ChunkIndex, &ch.Text,
			&ch.StartTime, &ch.EndTime, &meta, &similarity); err != nil {
			return nil, &domain.StorageError{Op: "search", Err: err}
		}
		ch.ContentType = domain.ContentType(contentType)
		if ch.Metadata, err = unmarshalMap(meta); err != nil {
			return nil, &domain.StorageError{Op: "search", Err: err}
		}
		hits = append(hits, domain.SearchHit{Chunk: ch, Score: domain.NormaliseScore(similarity)})
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "search", Err: err}
	}
	return vecmath.Rank(hits, topK), nil
}

// scopeClause appends scope filters to args and returns the WHERE clause.
func scopeClause(scope domain.SearchScope, args []any) (string, []any) {
	var conds []string
	if len(scope.ContentTypes) > 0 {
		types := make([]string, len(scope.ContentTypes))
		for i, t := range scope.ContentTypes {
			types[i] = string(t)
		}
		args = append(args, types)
		conds = append(conds, "content_type = ANY($"+strconv.Itoa(len(args))+")")
	}
	if len(scope.ContentIDs) > 0 {
		args = append(args, scope.ContentIDs)
		conds = append(conds, "content_id = ANY($"+strconv.Itoa(len(args))+")")
	}
	if scope.OwnerID != "" {
		args = append(args, scope.OwnerID)
		conds = append(conds, "owner_id = $"+strconv.Itoa(len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
