// Package postgres wires pgx connection pools with OpenTelemetry tracing,
// structured query logging and a per-query metrics hook.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig tunes the pool beyond what the connection URL carries.
type PoolConfig struct {
	MaxConns        int32
	MaxConnIdleTime time.Duration
}

// DefaultPoolConfig is sized for one tick writer plus API readers.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxConns: 8, MaxConnIdleTime: 5 * time.Minute}
}

// NewPool parses databaseURL, installs the tracing/logging query tracer and
// verifies connectivity.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	return NewPoolWithConfig(ctx, databaseURL, DefaultPoolConfig())
}

// NewPoolWithConfig is NewPool with explicit pool sizing.
func NewPoolWithConfig(ctx context.Context, databaseURL string, pc PoolConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if pc.MaxConns > 0 {
		cfg.MaxConns = pc.MaxConns
	}
	if pc.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = pc.MaxConnIdleTime
	}
	cfg.ConnConfig.Tracer = wrapQueryTracer(otelpgx.NewTracer(otelpgx.WithIncludeQueryParameters()))

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
