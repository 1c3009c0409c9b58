// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/go-redis/redis/v8"

	"github.com/holomush/authcore/internal/auth/postgres"
	"github.com/holomush/authcore/internal/observability"
	"github.com/holomush/authcore/internal/ratelimit"
	"github.com/holomush/authcore/internal/store"
)

// Database is the connection pool used by the commands.
// *pgxpool.Pool and pgxmock.PgxPoolIface satisfy it.
type Database interface {
	postgres.Pool
	Ping(ctx context.Context) error
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (version uint, dirty bool, err error)
	Status() (*store.Status, error)
	Close() error
}

// Deps contains injectable dependencies shared by the commands.
// All fields with nil values use their default implementations.
type Deps struct {
	// DatabaseFactory opens the connection pool.
	// Default: store.Open
	DatabaseFactory func(ctx context.Context, url string, cfg store.PoolConfig, logger *slog.Logger) (Database, error)

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// RedisClientFactory creates the client for the redis rate limit store.
	// Default: ratelimit.NewRedisClient
	RedisClientFactory func(url string) (redis.UniversalClient, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, checks map[string]observability.ReadinessCheck, logger *slog.Logger) *observability.Server

	// Listen binds the HTTP API listener.
	// Default: net.Listen
	Listen func(network, address string) (net.Listener, error)
}

// withDefaults returns a copy of d with every nil factory filled in.
func (d *Deps) withDefaults() *Deps {
	out := &Deps{}
	if d != nil {
		*out = *d
	}
	if out.DatabaseFactory == nil {
		out.DatabaseFactory = func(ctx context.Context, url string, cfg store.PoolConfig, logger *slog.Logger) (Database, error) {
			return store.Open(ctx, url, cfg, logger)
		}
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			m, err := store.NewMigrator(url)
			if err != nil {
				return nil, err
			}
			return m.WithLogger(slog.Default()), nil
		}
	}
	if out.RedisClientFactory == nil {
		out.RedisClientFactory = func(url string) (redis.UniversalClient, error) {
			return ratelimit.NewRedisClient(url)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = observability.NewServer
	}
	if out.Listen == nil {
		out.Listen = net.Listen
	}
	return out
}
