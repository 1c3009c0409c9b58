// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/internal/httpapi"
	"github.com/holomush/authcore/internal/observability"
	"github.com/holomush/authcore/internal/ratelimit"
	"github.com/holomush/authcore/pkg/errutil"
)

// gcTimeout bounds a single scheduled refresh token purge.
const gcTimeout = time.Minute

// NewServeCmd creates the serve subcommand. deps may be nil.
func NewServeCmd(g *globalFlags, deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the authcore HTTP API together with the metrics and health
server and the scheduled refresh token cleanup.

Secrets are read from the environment: AUTHCORE_SIGNING_KEY, DATABASE_URL
for the postgres backend and REDIS_URL for the redis rate limit store.
--store=memory runs without a database; nothing survives a restart.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, deps)
		},
	}
	config.RegisterServeFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps runs the service until ctx is cancelled or a signal
// arrives. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg config.Config, cmd *cobra.Command, deps *Deps) error {
	deps = deps.withDefaults()
	logger := slog.Default()

	if err := cfg.RequireServeSecrets(); err != nil {
		return err
	}

	repos, closeRepos, checks, err := openRepositories(ctx, deps, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepos()

	var (
		obs      *observability.Server
		reg      prometheus.Registerer
		authOpts = []auth.Option{auth.WithLogger(logger)}
	)
	if cfg.Metrics.Addr != "" {
		obs = deps.ObservabilityServerFactory(cfg.Metrics.Addr, checks, logger)
		reg = obs.Registry()
		authOpts = append(authOpts, auth.WithRecorder(obs.Metrics()))
	}

	limitStore, closeStore, err := openLimitStore(ctx, deps, cfg, reg, checks)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			logger.Warn("error closing rate limit store", "error", closeErr)
		}
	}()

	limiter, err := ratelimit.New(limitStore, cfg.RateLimit.Policies,
		ratelimit.WithLogger(logger),
		ratelimit.WithRegisterer(reg))
	if err != nil {
		return err
	}

	core, err := buildCore(repos, cfg, authOpts...)
	if err != nil {
		return err
	}

	api, err := httpapi.New(httpapi.Deps{
		Service:  core.service,
		Keys:     core.keys,
		Resolver: core.resolver,
		Limiter:  limiter,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	listener, err := deps.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	httpServer := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.GC.Schedule, func() {
		purgeRefreshTokens(ctx, core.tokens, cfg.GC.RevokedRetention, logger)
	}); err != nil {
		_ = listener.Close() //nolint:errcheck // schedule error takes precedence
		return oops.Code("CONFIG_INVALID").With("field", "gc.schedule").Wrap(err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	group, groupCtx := errgroup.WithContext(ctx)

	if obs != nil {
		obsErrCh, startErr := obs.Start()
		if startErr != nil {
			_ = listener.Close() //nolint:errcheck // start error takes precedence
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(startErr)
		}
		group.Go(func() error {
			select {
			case obsErr, ok := <-obsErrCh:
				if ok && obsErr != nil {
					return oops.Code("OBSERVABILITY_SERVE_FAILED").Wrap(obsErr)
				}
			case <-groupCtx.Done():
			}
			return nil
		})
	}

	group.Go(func() error {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return oops.Code("HTTP_SERVE_FAILED").Wrap(serveErr)
		}
		return nil
	})

	sched.Start()

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		select {
		case <-sched.Stop().Done():
		case <-shutdownCtx.Done():
			logger.Warn("refresh token cleanup still running at shutdown")
		}
		if obs != nil {
			if stopErr := obs.Stop(shutdownCtx); stopErr != nil {
				logger.Warn("error stopping observability server", "error", stopErr)
			}
		}
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(shutdownErr)
		}
		return nil
	})

	cmd.Println("authcore started")
	logger.Info("authcore ready",
		"http_addr", listener.Addr().String(),
		"metrics_addr", cfg.Metrics.Addr,
		"ratelimit_store", cfg.RateLimit.Store,
		"gc_schedule", cfg.GC.Schedule)

	if err := group.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// openRepositories opens the configured backend and returns its readiness
// checks. The PostgreSQL backend is migrated first when auto-migrate is on.
func openRepositories(
	ctx context.Context,
	deps *Deps,
	cfg config.Config,
	logger *slog.Logger,
) (repositories, func(), map[string]observability.ReadinessCheck, error) {
	checks := map[string]observability.ReadinessCheck{}
	if cfg.Database.Backend == config.BackendMemory {
		logger.Warn("using the memory backend; all data is lost on exit")
		return memoryRepositories(), func() {}, checks, nil
	}

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(deps, cfg.DatabaseURL, logger); err != nil {
			return repositories{}, nil, nil, err
		}
	}

	db, err := deps.DatabaseFactory(ctx, cfg.DatabaseURL, cfg.Pool(), logger)
	if err != nil {
		return repositories{}, nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	checks["database"] = db.Ping
	return postgresRepositories(db), db.Close, checks, nil
}

// autoMigrate applies pending migrations before the pool opens.
func autoMigrate(deps *Deps, databaseURL string, logger *slog.Logger) error {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	logger.Info("running database migrations")
	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	return nil
}

// openLimitStore opens the configured rate limit store and registers its
// readiness check.
func openLimitStore(
	ctx context.Context,
	deps *Deps,
	cfg config.Config,
	reg prometheus.Registerer,
	checks map[string]observability.ReadinessCheck,
) (ratelimit.Store, func() error, error) {
	if cfg.RateLimit.Store == config.StoreRedis {
		client, err := deps.RedisClientFactory(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		rs, err := ratelimit.NewRedisStore(client, cfg.RateLimit.RedisPrefix)
		if err != nil {
			_ = client.Close() //nolint:errcheck // construction error takes precedence
			return nil, nil, err
		}
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close() //nolint:errcheck // ping error takes precedence
			return nil, nil, oops.Code("RATELIMIT_STORE_UNAVAILABLE").With("store", config.StoreRedis).Wrap(err)
		}
		checks["redis"] = rs.Ping
		return rs, rs.Close, nil
	}

	ms, err := ratelimit.NewMemoryStore(ratelimit.MemoryConfig{
		MaxKeys:         cfg.RateLimit.MaxKeys,
		CleanupInterval: cfg.RateLimit.CleanupInterval,
		Registerer:      reg,
	})
	if err != nil {
		return nil, nil, err
	}
	return ms, ms.Close, nil
}

// purgeRefreshTokens is the scheduled cleanup job.
func purgeRefreshTokens(ctx context.Context, tokens *auth.TokenIssuer, retention time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, gcTimeout)
	defer cancel()

	n, err := tokens.PurgeRefreshTokens(ctx, retention)
	if err != nil {
		errutil.LogErrorContext(ctx, logger, slog.LevelError, "refresh token cleanup failed", err)
		return
	}
	logger.InfoContext(ctx, "refresh token cleanup complete", "deleted", n)
}
