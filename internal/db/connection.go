// Package db contains code for connecting to the database.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/holocron-dev/holocron/internal/config"
	"github.com/holocron-dev/holocron/internal/logger"
)

const (
	defaultMaxConns       = 25
	defaultMinIdleConns   = 5
	defaultMaxConnLife    = 5 * time.Minute
	defaultConnectTimeout = 10 * time.Second
)

// NewPool creates a pgx connection pool from the provided configuration and
// verifies it with a ping.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	connStr, err := cfg.GetConnectionString()
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxOpenConns
	if poolCfg.MaxConns == 0 {
		poolCfg.MaxConns = defaultMaxConns
	}
	poolCfg.MinIdleConns = cfg.MinIdleConns
	if poolCfg.MinIdleConns == 0 {
		poolCfg.MinIdleConns = defaultMinIdleConns
	}
	poolCfg.MaxConnLifetime = defaultMaxConnLife
	poolCfg.ConnConfig.ConnectTimeout = defaultConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Database connection established: %s", cfg.Redacted())
	return pool, nil
}
