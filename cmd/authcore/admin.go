// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/config"
)

// withCore loads the config, opens PostgreSQL and runs fn against the auth
// stack. Admin commands need the same environment as serve, except that
// the rate limiter and listeners are never started.
func withCore(cmd *cobra.Command, g *globalFlags, deps *Deps, fn func(ctx context.Context, cfg config.Config, core *authCore) error) error {
	cfg, err := g.load(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.Backend != config.BackendPostgres {
		return oops.Code("CONFIG_INVALID").
			With("field", "database.backend").
			Errorf("admin commands need the %s backend, got %q", config.BackendPostgres, cfg.Database.Backend)
	}
	if err := cfg.RequireDatabaseURL(); err != nil {
		return err
	}
	if err := cfg.RequireSigningKey(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := slog.Default()

	db, err := deps.withDefaults().DatabaseFactory(ctx, cfg.DatabaseURL, cfg.Pool(), logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	core, err := buildCore(postgresRepositories(db), cfg, auth.WithLogger(logger))
	if err != nil {
		return err
	}
	return fn(ctx, cfg, core)
}

// accountByEmail looks up the account an admin command targets.
func accountByEmail(ctx context.Context, core *authCore, email string) (*auth.Account, error) {
	if email == "" {
		return nil, oops.Code("INVALID_ARGUMENT").Errorf("--email is required")
	}
	account, err := core.accounts.GetByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		return nil, oops.Code("ACCOUNT_LOOKUP_FAILED").With("email", auth.NormalizeEmail(email)).Wrap(err)
	}
	return account, nil
}
