package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

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

const chunkColumns = 12

// Upsert replaces all chunks of the content inside one transaction.
// Rows are written in batches of driven.UpsertBatchSize.
func (c *chunkStore) Upsert(ctx context.Context, ref domain.ContentRef, chunks []domain.Chunk, metadata map[string]any) error {
	if err := ref.Validate(); err != nil {
		return &domain.StorageError{Ref: ref, Op: "upsert", Err: err}
	}
	if err := validateChunks(chunks); err != nil {
		return &domain.StorageError{Ref: ref, Op: "upsert", Err: err}
	}

	owner := ""
	if len(chunks) > 0 {
		owner = vecmath.OwnerOf(metadata, chunks[0].Metadata)
	}
	now := c.store.now().UnixNano()

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Ref: ref, Op: "upsert", Err: fmt.Errorf("beginning transaction: %w", err)}
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE content_id = ? AND content_type = ?", ref.ID, string(ref.Type)); err != nil {
		return &domain.StorageError{Ref: ref, Op: "upsert", Err: fmt.Errorf("deleting old chunks: %w", err)}
	}

	for start := 0; start < len(chunks); start += driven.UpsertBatchSize {
		end := min(start+driven.UpsertBatchSize, len(chunks))
		batch := chunks[start:end]

		args := make([]any, 0, len(batch)*chunkColumns)
		rows := make([]string, 0, len(batch))
		for _, ch := range batch {
			id := ch.ID
			if id == "" {
				id = uuid.New().String()
			}
			meta, err := marshalJSON(ch.Metadata, "{}")
			if err != nil {
				return &domain.StorageError{Ref: ref, Op: "upsert", Err: fmt.Errorf("marshalling chunk metadata: %w", err)}
			}
			rows = append(rows, "("+placeholders(chunkColumns)+")")
			args = append(args,
				id, ref.ID, string(ref.Type), ch.ChunkIndex, owner, ch.Text,
				nullFloat(ch.StartTime), nullFloat(ch.EndTime),
				vecmath.Encode(ch.Embedding), len(ch.Embedding), meta, now,
			)
		}

		query := `INSERT INTO chunks (id, content_id, content_type, chunk_index, owner_id, text,
			start_time, end_time, embedding, dimensions, metadata, created_at)
			VALUES ` + strings.Join(rows, ", ")
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return &domain.StorageError{Ref: ref, Op: "upsert", Err: fmt.Errorf("inserting chunks %d-%d: %w", start, end-1, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Ref: ref, Op: "upsert", Err: fmt.Errorf("committing chunks: %w", err)}
	}
	return nil
}

// Delete removes all chunks of the content.
func (c *chunkStore) Delete(ctx context.Context, ref domain.ContentRef) error {
	_, err := c.store.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE content_id = ? AND content_type = ?", ref.ID, string(ref.Type))
	if err != nil {
		return &domain.StorageError{Ref: ref, Op: "delete", Err: err}
	}
	return nil
}

// Count returns the number of chunks stored for the content.
func (c *chunkStore) Count(ctx context.Context, ref domain.ContentRef) (int, error) {
	var n int
	err := c.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE content_id = ? AND content_type = ?",
		ref.ID, string(ref.Type)).Scan(&n)
	if err != nil {
		return 0, &domain.StorageError{Ref: ref, Op: "count", Err: err}
	}
	return n, nil
}

// List returns the chunks of the content ordered by index.
func (c *chunkStore) List(ctx context.Context, ref domain.ContentRef) ([]domain.Chunk, error) {
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT id, content_id, content_type, chunk_index, text, start_time, end_time, embedding, metadata
		FROM chunks WHERE content_id = ? AND content_type = ?
		ORDER BY chunk_index`, ref.ID, string(ref.Type))
	if err != nil {
		return nil, &domain.StorageError{Ref: ref, Op: "list", Err: err}
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		ch, err := scanChunk(rows)
		if err != nil {
			return nil, &domain.StorageError{Ref: ref, Op: "list", Err: err}
		}
		out = append(out, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Ref: ref, Op: "list", Err: err}
	}
	return out, nil
}

// Search scans the chunks in scope and ranks them by cosine similarity.
func (c *chunkStore) Search(ctx context.Context, query []float32, scope domain.SearchScope, topK int) ([]domain.SearchHit, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}

	where, args := scopeClause(scope)
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT id, content_id, content_type, chunk_index, text, start_time, end_time, embedding, metadata
		FROM chunks`+where, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "search", Err: err}
	}
	defer rows.Close()

	var hits []domain.SearchHit
	for rows.Next() {
		ch, err := scanChunk(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "search", Err: err}
		}
		if len(ch.Embedding) != len(query) {
			return nil, fmt.Errorf("%w: query has %d dimensions, stored chunks have %d",
				domain.ErrDimensionMismatch, len(query), len(ch.Embedding))
		}
		score := domain.NormaliseScore(vecmath.Cosine(query, ch.Embedding))
		ch.Embedding = nil
		hits = append(hits, domain.SearchHit{Chunk: *ch, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "search", Err: err}
	}
	return vecmath.Rank(hits, topK), nil
}

// ==================== Helpers ====================

// validateChunks rejects a set that could only be partially written.
func validateChunks(chunks []domain.Chunk) error {
	seen := make(map[int]bool, len(chunks))
	dims := -1
	for _, ch := range chunks {
		if len(ch.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %d has no embedding", domain.ErrInvalidInput, ch.ChunkIndex)
		}
		if dims >= 0 && len(ch.Embedding) != dims {
			return fmt.Errorf("%w: chunk %d has %d dimensions, want %d",
				domain.ErrDimensionMismatch, ch.ChunkIndex, len(ch.Embedding), dims)
		}
		dims = len(ch.Embedding)
		if seen[ch.ChunkIndex] {
			return fmt.Errorf("%w: duplicate chunk index %d", domain.ErrAlreadyExists, ch.ChunkIndex)
		}
		seen[ch.ChunkIndex] = true
	}
	return nil
}

func scopeClause(scope domain.SearchScope) (string, []any) {
	var conds []string
	var args []any
	if len(scope.ContentTypes) > 0 {
		conds = append(conds, "content_type IN ("+placeholders(len(scope.ContentTypes))+")")
		for _, t := range scope.ContentTypes {
			args = append(args, string(t))
		}
	}
	if len(scope.ContentIDs) > 0 {
		conds = append(conds, "content_id IN ("+placeholders(len(scope.ContentIDs))+")")
		for _, id := range scope.ContentIDs {
			args = append(args, id)
		}
	}
	if scope.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, scope.OwnerID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var (
		ch          domain.Chunk
		contentType string
		start, end  sql.NullFloat64
		blob        []byte
		meta        string
	)
	if err := row.Scan(&ch.ID, &ch.ContentID, &contentType, &ch.ChunkIndex, &ch.Text,
		&start, &end, &blob, &meta); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	ch.ContentType = domain.ContentType(contentType)
	ch.StartTime = fromNullFloat(start)
	ch.EndTime = fromNullFloat(end)

	vec, err := vecmath.Decode(blob)
	if err != nil {
		return nil, err
	}
	ch.Embedding = vec

	m, err := unmarshalMap(meta)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
	}
	ch.Metadata = m
	return &ch, nil
}
