// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/config"
)

// NewKeysCmd creates the keys subcommand. deps may be nil.
func NewKeysCmd(g *globalFlags, deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys on behalf of an account",
	}
	cmd.AddCommand(
		newKeysCreateCmd(g, deps),
		newKeysListCmd(g, deps),
		newKeysRevokeCmd(g, deps),
	)
	return cmd
}

func newKeysCreateCmd(g *globalFlags, deps *Deps) *cobra.Command {
	var (
		email  string
		label  string
		scopes []string
		days   int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		Long: `Create an API key for an account. The key is printed once and
cannot be recovered later. Scopes may not exceed the account's role.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 0 {
				return oops.Code("INVALID_ARGUMENT").With("expires_in_days", days).Errorf("--expires-in-days must not be negative")
			}
			ttl, err := auth.KeyTTLFromDays(days)
			if err != nil {
				return err
			}
			return withCore(cmd, g, deps, func(ctx context.Context, _ config.Config, core *authCore) error {
				account, err := accountByEmail(ctx, core, email)
				if err != nil {
					return err
				}
				created, err := core.keys.CreateKey(ctx, account.ID, auth.KeyRequest{
					Label:     label,
					Scopes:    scopes,
					ExpiresIn: ttl,
				})
				if err != nil {
					return err
				}
				cmd.Printf("Key:     %s\n", created.Plaintext)
				cmd.Printf("ID:      %s\n", created.Key.ID)
				cmd.Printf("Scopes:  %s\n", auth.JoinScopes(created.Key.Scopes))
				cmd.Printf("Expires: %s\n", created.Key.ExpiresAt.Format(time.RFC3339))
				cmd.Println("Store the key now; it is not shown again.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "owning account email")
	cmd.Flags().StringVar(&label, "label", "", "human-readable key label")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{string(auth.ScopeRead)}, "granted scope (repeatable)")
	cmd.Flags().IntVar(&days, "expires-in-days", 0, "lifetime in days (0 selects the default; capped at 90)")
	return cmd
}

func newKeysListCmd(g *globalFlags, deps *Deps) *cobra.Command {
	var (
		email      string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the API keys of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, g, deps, func(ctx context.Context, _ config.Config, core *authCore) error {
				account, err := accountByEmail(ctx, core, email)
				if err != nil {
					return err
				}
				keys, err := core.keys.ListKeys(ctx, account.ID)
				if err != nil {
					return err
				}
				if jsonOutput {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(keys)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "ID\tPREFIX\tLABEL\tSCOPES\tSTATUS\tEXPIRES")
				for _, k := range keys {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						k.ID, k.KeyPrefix, k.Label, auth.JoinScopes(k.Scopes), k.Status,
						k.ExpiresAt.Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "owning account email")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output keys as JSON")
	return cmd
}

func newKeysRevokeCmd(g *globalFlags, deps *Deps) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "revoke KEY_ID",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyID, err := ulid.ParseStrict(args[0])
			if err != nil {
				return oops.Code("INVALID_ARGUMENT").With("key_id", args[0]).Wrapf(err, "malformed key id")
			}
			return withCore(cmd, g, deps, func(ctx context.Context, _ config.Config, core *authCore) error {
				account, err := accountByEmail(ctx, core, email)
				if err != nil {
					return err
				}
				if err := core.keys.RevokeKey(ctx, account.ID, keyID); err != nil {
					return err
				}
				cmd.Printf("Revoked key %s\n", keyID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "owning account email")
	return cmd
}
