// Package postgres is the single system of record: magazine metadata,
// content, pgvector embeddings, and the lexical/ANN indexes over them.
// All SQL lives here; the rest of the codebase speaks domain types.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/JyotiRSharma/hybrid-search/internal/domain"
)

// Config holds connection parameters for the Postgres store.
type Config struct {
	DSN          string
	MaxOpenConns int
	VectorDims   int
	Logger       *zap.Logger
}

// Store wraps a Postgres connection pool.
type Store struct {
	db     *sql.DB
	dims   int
	logger *zap.Logger
}

// Open creates a store. The connection is verified by WaitForReady, not here.
func Open(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dims := cfg.VectorDims
	if dims <= 0 {
		dims = DefaultVectorDims
	}
	return &Store{db: db, dims: dims, logger: logger}, nil
}

// DefaultVectorDims is the width of the embedding column.
const DefaultVectorDims = 384

// VectorDims returns the configured embedding column width.
func (s *Store) VectorDims() int { return s.dims }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

// WaitForReady polls the store until it answers or the timeout elapses.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if lastErr = s.db.PingContext(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return storeErr("wait for ready", lastErr)
}

// Close shuts down the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ServerInfo reports the connected database, host and port. Logged at
// backfill start to catch wrong-target mistakes before any write.
func (s *Store) ServerInfo(ctx context.Context) (string, error) {
	var db, host, port sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT current_database(), inet_server_addr()::text, inet_server_port()::text`,
	).Scan(&db, &host, &port)
	if err != nil {
		return "", storeErr("server info", err)
	}
	return fmt.Sprintf("db=%s host=%s port=%s", db.String, host.String, port.String), nil
}

// storeErr attributes a failure to the transient I/O kind of the error
// taxonomy. The caller owns retry policy.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
