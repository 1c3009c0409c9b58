// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/config"
)

// NewTokensCmd creates the tokens subcommand. deps may be nil.
func NewTokensCmd(g *globalFlags, deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Maintain refresh tokens",
	}
	cmd.AddCommand(newTokensGCCmd(g, deps), newTokensRevokeAllCmd(g, deps))
	return cmd
}

func newTokensGCCmd(g *globalFlags, deps *Deps) *cobra.Command {
	var retention time.Duration
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Delete expired and long-revoked refresh tokens",
		Long: `Delete refresh tokens that have expired or were revoked longer than
the retention ago. serve runs the same cleanup on the gc.schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, g, deps, func(ctx context.Context, cfg config.Config, core *authCore) error {
				keep := cfg.GC.RevokedRetention
				if cmd.Flags().Changed("retention") {
					keep = retention
				}
				if keep < 0 {
					return oops.Code("INVALID_ARGUMENT").With("retention", keep.String()).Errorf("--retention must not be negative")
				}
				n, err := core.tokens.PurgeRefreshTokens(ctx, keep)
				if err != nil {
					return err
				}
				cmd.Printf("Deleted %d refresh token(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&retention, "retention", config.Default().GC.RevokedRetention, "keep revoked tokens this long (default from gc.revoked_retention)")
	return cmd
}

func newTokensRevokeAllCmd(g *globalFlags, deps *Deps) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "revoke-all",
		Short: "Revoke every refresh token of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, g, deps, func(ctx context.Context, _ config.Config, core *authCore) error {
				account, err := accountByEmail(ctx, core, email)
				if err != nil {
					return err
				}
				n, err := core.tokens.RevokeAllRefreshTokens(ctx, account.ID)
				if err != nil {
					return err
				}
				cmd.Printf("Revoked %d refresh token(s) of %s\n", n, account.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}
