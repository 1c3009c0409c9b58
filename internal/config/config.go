// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads authcore settings from defaults, an optional YAML
// file, command-line flags and the environment.
package config

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/ratelimit"
	"github.com/holomush/authcore/internal/store"
)

// Environment variables holding secrets. Secrets are never read from the
// config file or flags.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvRedisURL    = "REDIS_URL"
	EnvSigningKey  = "AUTHCORE_SIGNING_KEY"
)

// Rate limit store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Persistence backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config is the full authcore configuration.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http" json:"http"`
	Metrics   MetricsConfig   `koanf:"metrics" json:"metrics"`
	Log       LogConfig       `koanf:"log" json:"log"`
	Token     TokenConfig     `koanf:"token" json:"token"`
	RateLimit RateLimitConfig `koanf:"ratelimit" json:"ratelimit"`
	Database  DatabaseConfig  `koanf:"database" json:"database"`
	GC        GCConfig        `koanf:"gc" json:"gc"`

	DatabaseURL string `koanf:"-" json:"-"`
	RedisURL    string `koanf:"-" json:"-"`
	SigningKey  string `koanf:"-" json:"-"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr" json:"addr" jsonschema:"description=API listen address (host:port)"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" json:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`
}

// MetricsConfig configures the observability listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr" jsonschema:"description=Metrics and health listen address; empty disables"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format string `koanf:"format" json:"format" jsonschema:"enum=json,enum=text"`
}

// TokenConfig configures access and refresh token lifetimes.
type TokenConfig struct {
	Issuer     string        `koanf:"issuer" json:"issuer"`
	AccessTTL  time.Duration `koanf:"access_ttl" json:"access_ttl"`
	RefreshTTL time.Duration `koanf:"refresh_ttl" json:"refresh_ttl"`
}

// RateLimitConfig selects the window store and per-operation ceilings.
type RateLimitConfig struct {
	Store           string             `koanf:"store" json:"store" jsonschema:"enum=memory,enum=redis"`
	RedisPrefix     string             `koanf:"redis_prefix" json:"redis_prefix"`
	MaxKeys         int                `koanf:"max_keys" json:"max_keys" jsonschema:"minimum=1"`
	CleanupInterval time.Duration      `koanf:"cleanup_interval" json:"cleanup_interval"`
	Policies        ratelimit.Policies `koanf:"policies" json:"policies"`
}

// DatabaseConfig selects the persistence backend and tunes the PostgreSQL
// pool. The memory backend keeps everything in process and is meant for
// development.
type DatabaseConfig struct {
	Backend         string        `koanf:"backend" json:"backend" jsonschema:"enum=postgres,enum=memory"`
	AutoMigrate     bool          `koanf:"auto_migrate" json:"auto_migrate"`
	MaxConns        int32         `koanf:"max_conns" json:"max_conns" jsonschema:"minimum=1"`
	MinConns        int32         `koanf:"min_conns" json:"min_conns" jsonschema:"minimum=0"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime" json:"max_conn_lifetime"`
	ConnectAttempts uint64        `koanf:"connect_attempts" json:"connect_attempts" jsonschema:"minimum=1"`
	ConnectBackoff  time.Duration `koanf:"connect_backoff" json:"connect_backoff"`
}

// GCConfig schedules the refresh token purge.
type GCConfig struct {
	Schedule         string        `koanf:"schedule" json:"schedule" jsonschema:"description=Cron spec or descriptor such as @every 1h"`
	RevokedRetention time.Duration `koanf:"revoked_retention" json:"revoked_retention"`
}

// Default returns the built-in configuration.
func Default() Config {
	pool := store.DefaultPoolConfig()
	return Config{
		HTTP: HTTPConfig{
			Addr:              "127.0.0.1:8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Level: "info", Format: "json"},
		Token: TokenConfig{
			Issuer:     "authcore",
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Store:           StoreMemory,
			RedisPrefix:     ratelimit.DefaultRedisPrefix,
			MaxKeys:         ratelimit.DefaultMaxKeys,
			CleanupInterval: ratelimit.DefaultCleanupInterval,
			Policies:        ratelimit.DefaultPolicies(),
		},
		Database: DatabaseConfig{
			Backend:         BackendPostgres,
			MaxConns:        pool.MaxConns,
			MinConns:        pool.MinConns,
			MaxConnLifetime: pool.MaxConnLifetime,
			ConnectAttempts: pool.ConnectAttempts,
			ConnectBackoff:  pool.ConnectBackoff,
		},
		GC: GCConfig{
			Schedule:         "@every 1h",
			RevokedRetention: 24 * time.Hour,
		},
	}
}

// Pool returns the store pool settings.
func (c Config) Pool() store.PoolConfig {
	return store.PoolConfig{
		MaxConns:        c.Database.MaxConns,
		MinConns:        c.Database.MinConns,
		MaxConnLifetime: c.Database.MaxConnLifetime,
		ConnectAttempts: c.Database.ConnectAttempts,
		ConnectBackoff:  c.Database.ConnectBackoff,
	}
}

// Validate checks the non-secret settings.
func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "listen address is required")
	}
	if c.HTTP.ReadHeaderTimeout <= 0 {
		return invalid("http.read_header_timeout", "must be positive")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return invalid("http.shutdown_timeout", "must be positive")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return invalid("log.level", "unknown level %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "must be json or text, got %q", c.Log.Format)
	}

	if c.Token.Issuer == "" {
		return invalid("token.issuer", "issuer is required")
	}
	if c.Token.AccessTTL <= 0 {
		return invalid("token.access_ttl", "must be positive")
	}
	if c.Token.RefreshTTL <= c.Token.AccessTTL {
		return invalid("token.refresh_ttl", "must be longer than the access token lifetime")
	}

	switch c.RateLimit.Store {
	case StoreMemory, StoreRedis:
	default:
		return invalid("ratelimit.store", "must be memory or redis, got %q", c.RateLimit.Store)
	}
	if c.RateLimit.MaxKeys < 1 {
		return invalid("ratelimit.max_keys", "must be at least 1")
	}
	if c.RateLimit.CleanupInterval <= 0 {
		return invalid("ratelimit.cleanup_interval", "must be positive")
	}
	if err := c.RateLimit.Policies.Validate(); err != nil {
		return invalid("ratelimit.policies", "%v", err)
	}

	switch c.Database.Backend {
	case BackendPostgres, BackendMemory:
	default:
		return invalid("database.backend", "must be postgres or memory, got %q", c.Database.Backend)
	}
	if c.Database.MaxConns < 1 {
		return invalid("database.max_conns", "must be at least 1")
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return invalid("database.min_conns", "must be between 0 and max_conns")
	}
	if c.Database.ConnectAttempts < 1 {
		return invalid("database.connect_attempts", "must be at least 1")
	}

	if _, err := cron.ParseStandard(c.GC.Schedule); err != nil {
		return oops.Code("CONFIG_INVALID").With("field", "gc.schedule").Wrapf(err, "invalid schedule %q", c.GC.Schedule)
	}
	if c.GC.RevokedRetention < 0 {
		return invalid("gc.revoked_retention", "must not be negative")
	}
	return nil
}

// RequireDatabaseURL fails when DATABASE_URL is unset.
func (c Config) RequireDatabaseURL() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("%s environment variable is required", EnvDatabaseURL)
	}
	return nil
}

// RequireSigningKey fails when the token signing key is unset.
func (c Config) RequireSigningKey() error {
	if c.SigningKey == "" {
		return oops.Code("CONFIG_INVALID").Errorf("%s environment variable is required", EnvSigningKey)
	}
	return nil
}

// RequireServeSecrets fails when a secret needed by serve is unset.
// The database URL is not needed by the memory backend.
func (c Config) RequireServeSecrets() error {
	if c.Database.Backend != BackendMemory {
		if err := c.RequireDatabaseURL(); err != nil {
			return err
		}
	}
	if err := c.RequireSigningKey(); err != nil {
		return err
	}
	if c.RateLimit.Store == StoreRedis && c.RedisURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("%s environment variable is required for the redis rate limit store", EnvRedisURL)
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("field", field).Errorf(field+": "+format, args...)
}
