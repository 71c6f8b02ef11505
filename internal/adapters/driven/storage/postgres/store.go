package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/custodia-labs/coursedex/internal/adapters/driven/storage/postgres/migrations"
	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/logger"
)

const dimensionsPlaceholder = "{{dimensions}}"

// Store is a PostgreSQL-backed storage exposing every store port.
type Store struct {
	pool       *pgxpool.Pool
	dimensions int
	now        func() time.Time
}

// NewStore connects to the database, applies pending migrations and opens
// a connection pool with the pgvector types registered.
func NewStore(ctx context.Context, dsn string, dimensions int) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", domain.ErrInvalidInput)
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: vector dimensions must be positive", domain.ErrInvalidInput)
	}

	// The vector type only exists after the first migration, so migrations
	// run on a plain connection before the pool registers codecs.
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := migrate(ctx, conn, migrations.FS, dimensions); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := checkDimensions(ctx, conn, dimensions); err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}
	_ = conn.Close(ctx)

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	logger.Component("postgres").Debug("store opened", "dimensions", dimensions)
	return &Store{pool: pool, dimensions: dimensions, now: time.Now}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Dimensions returns the vector column width.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// Queue returns a ProcessingQueue interface backed by this store.
func (s *Store) Queue() driven.ProcessingQueue {
	return &queueStore{store: s}
}

// ContentRepository returns a ContentRepository interface backed by this store.
func (s *Store) ContentRepository() driven.ContentRepository {
	return &contentStore{store: s}
}

// ContentWriter returns a ContentWriter interface backed by this store.
func (s *Store) ContentWriter() driven.ContentWriter {
	return &contentStore{store: s}
}

// migrate applies every embedded .up.sql newer than the recorded version.
func migrate(ctx context.Context, conn *pgx.Conn, fsys fs.FS, dimensions int) error {
	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := conn.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, renderMigration(string(content), dimensions)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

func renderMigration(sql string, dimensions int) string {
	return strings.ReplaceAll(sql, dimensionsPlaceholder, strconv.Itoa(dimensions))
}

// checkDimensions compares the existing vector column width with the
// configured embedding width.
func checkDimensions(ctx context.Context, conn *pgx.Conn, dimensions int) error {
	var width int
	err := conn.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = 'chunks'::regclass AND attname = 'embedding'`).Scan(&width)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading vector column width: %w", err)
	}
	if width > 0 && width != dimensions {
		return fmt.Errorf("%w: chunks.embedding is vector(%d), embedding model produces %d",
			domain.ErrDimensionMismatch, width, dimensions)
	}
	return nil
}

// ==================== Helper Functions ====================

func marshalJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func unmarshalMap(b []byte) (map[string]any, error) {
	s := string(b)
	if s == "" || s == "null" || s == "{}" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// placeholders returns "($n, $n+1, ...)" groups for a multi-row insert.
func placeholders(rows, cols int) string {
	groups := make([]string, rows)
	n := 1
	for r := range groups {
		marks := make([]string, cols)
		for c := range marks {
			marks[c] = "$" + strconv.Itoa(n)
			n++
		}
		groups[r] = "(" + strings.Join(marks, ", ") + ")"
	}
	return strings.Join(groups, ", ")
}
