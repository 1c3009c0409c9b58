// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// PoolConfig tunes the connection pool and the startup connect loop.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	ConnectAttempts uint64
	ConnectBackoff  time.Duration
}

// DefaultPoolConfig returns the pool settings used when none are configured.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		ConnectAttempts: 5,
		ConnectBackoff:  200 * time.Millisecond,
	}
}

// Open creates a pgx pool for databaseURL and pings it, retrying with
// exponential backoff while the database comes up.
func Open(ctx context.Context, databaseURL string, cfg PoolConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if err := retry.Do(ctx, connectBackoff(cfg), func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			logger.WarnContext(ctx, "database not ready", "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	}); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", cfg.ConnectAttempts).
			Wrap(err)
	}

	logger.InfoContext(ctx, "database connected",
		"max_conns", poolCfg.MaxConns,
		"min_conns", poolCfg.MinConns)
	return pool, nil
}

func connectBackoff(cfg PoolConfig) retry.Backoff {
	base := cfg.ConnectBackoff
	if base <= 0 {
		base = DefaultPoolConfig().ConnectBackoff
	}
	attempts := cfg.ConnectAttempts
	if attempts == 0 {
		attempts = 1
	}
	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(5*time.Second, b)
	// WithMaxRetries counts retries after the first attempt.
	return retry.WithMaxRetries(attempts-1, b)
}
