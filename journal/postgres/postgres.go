// Package postgres is a journal.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the journal tables. Money is NUMERIC so sums stay exact.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	initial_balance NUMERIC NOT NULL,
	prior_peak NUMERIC,
	entry_phase TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts(id),
	instrument TEXT NOT NULL,
	lots DOUBLE PRECISION NOT NULL,
	result NUMERIC NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL,
	notes TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_account_time ON trades(account_id, timestamp);
`

// PoolConfig holds pool sizing.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPool creates a configured pgxpool connection pool and verifies it.
func NewPool(ctx context.Context, dsn string, pc PoolConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if pc.MaxConns > 0 {
		config.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		config.MinConns = pc.MinConns
	}
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if logger != nil {
		logger.Info("Database connection pool established",
			"max_conns", config.MaxConns,
			"min_conns", config.MinConns,
		)
	}
	return pool, nil
}

// Migrate applies Schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
