// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/config"
)

// NewAccountsCmd creates the accounts subcommand. deps may be nil.
func NewAccountsCmd(g *globalFlags, deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
		Long: `Manage accounts directly in the database. This is the only way to
create admin accounts; self-service signup always creates users.`,
	}
	cmd.AddCommand(
		newAccountsCreateCmd(g, deps),
		newAccountsSetActiveCmd(g, deps, false),
		newAccountsSetActiveCmd(g, deps, true),
	)
	return cmd
}

func newAccountsCreateCmd(g *globalFlags, deps *Deps) *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Long: `Create an account. The password is read from the first line of
standard input so that it never appears in the process list:

  printf '%s\n' "$PASSWORD" | authcore accounts create --email ops@example.com --role admin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := auth.Role(strings.ToLower(role))
			if !r.Valid() {
				return oops.Code("INVALID_ARGUMENT").With("role", role).Errorf("role must be user or admin")
			}
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withCore(cmd, g, deps, func(ctx context.Context, _ config.Config, core *authCore) error {
				account, err := core.service.Signup(ctx, email, password, r)
				if err != nil {
					return err
				}
				cmd.Printf("Created %s account %s (%s)\n", account.Role, account.Email, account.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleUser), "account role (user, admin)")
	return cmd
}

// newAccountsSetActiveCmd builds activate or deactivate. Deactivation also
// revokes every refresh token of the account.
func newAccountsSetActiveCmd(g *globalFlags, deps *Deps, active bool) *cobra.Command {
	var email string
	use, short := "deactivate", "Deactivate an account and revoke its sessions"
	if active {
		use, short = "activate", "Reactivate an account"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, g, deps, func(ctx context.Context, _ config.Config, core *authCore) error {
				account, err := accountByEmail(ctx, core, email)
				if err != nil {
					return err
				}
				account.IsActive = active
				account.UpdatedAt = time.Now().UTC()
				if err := core.accounts.Update(ctx, account); err != nil {
					return oops.Code("ACCOUNT_UPDATE_FAILED").With("email", account.Email).Wrap(err)
				}
				if active {
					cmd.Printf("Activated %s\n", account.Email)
					return nil
				}

				n, err := core.tokens.RevokeAllRefreshTokens(ctx, account.ID)
				if err != nil {
					return err
				}
				cmd.Printf("Deactivated %s and revoked %d refresh token(s)\n", account.Email, n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

// readPassword returns the first line of r without its line ending.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", oops.Code("INVALID_ARGUMENT").Errorf("password must be provided on standard input")
	}
	return password, nil
}
