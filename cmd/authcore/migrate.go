// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate subcommand. deps may be nil.
func NewMigrateCmd(g *globalFlags, deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage the authcore PostgreSQL schema. Without a subcommand all
pending migrations are applied. DATABASE_URL must be set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, g, deps, func(m Migrator) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}

	cmd.AddCommand(
		newMigrateUpCmd(g, deps),
		newMigrateDownCmd(g, deps),
		newMigrateStepsCmd(g, deps),
		newMigrateStatusCmd(g, deps),
		newMigrateForceCmd(g, deps),
		newMigrateVersionCmd(g, deps),
	)
	return cmd
}

// withMigrator loads the config, opens a migrator and closes it after fn.
func withMigrator(cmd *cobra.Command, g *globalFlags, deps *Deps, fn func(Migrator) error) (err error) {
	cfg, err := g.load(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabaseURL(); err != nil {
		return err
	}

	m, err := deps.withDefaults().MigratorFactory(cfg.DatabaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(m)
}

func newMigrateUpCmd(g *globalFlags, deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, g, deps, func(m Migrator) error {
				if err := m.Up(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "migrate up").Wrap(err)
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}
}

func newMigrateDownCmd(g *globalFlags, deps *Deps) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		Long:  `Roll back every migration. This drops all authcore tables and data.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("migrate down drops all data; pass --yes to confirm")
			}
			return withMigrator(cmd, g, deps, func(m Migrator) error {
				if err := m.Down(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "migrate down").Wrap(err)
				}
				cmd.Println("All migrations rolled back")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping all data")
	return cmd
}

func newMigrateStepsCmd(g *globalFlags, deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "steps N",
		Short: "Apply N migrations, or roll back when N is negative",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n == 0 {
				return oops.Code("INVALID_ARGUMENT").With("steps", args[0]).Errorf("steps must be a non-zero integer")
			}
			return withMigrator(cmd, g, deps, func(m Migrator) error {
				if err := m.Steps(n); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "migrate steps").With("steps", n).Wrap(err)
				}
				cmd.Printf("Applied %d migration step(s)\n", n)
				return nil
			})
		},
	}
}

func newMigrateStatusCmd(g *globalFlags, deps *Deps) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, g, deps, func(m Migrator) error {
				status, err := m.Status()
				if err != nil {
					return oops.Code("MIGRATION_STATUS_FAILED").Wrap(err)
				}
				if jsonOutput {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(status)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintf(w, "VERSION\t%d\n", status.Version)
				_, _ = fmt.Fprintf(w, "NAME\t%s\n", status.Name)
				_, _ = fmt.Fprintf(w, "DIRTY\t%t\n", status.Dirty)
				_, _ = fmt.Fprintf(w, "APPLIED\t%d\n", len(status.Applied))
				_, _ = fmt.Fprintf(w, "PENDING\t%v\n", status.Pending)
				return w.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output status as JSON")
	return cmd
}

func newMigrateForceCmd(g *globalFlags, deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Set the schema version and clear the dirty flag without running any
migration. Use after repairing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil || version < -1 {
				return oops.Code("INVALID_ARGUMENT").With("version", args[0]).Errorf("version must be an integer >= -1")
			}
			return withMigrator(cmd, g, deps, func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "force version").With("version", version).Wrap(err)
				}
				cmd.Printf("Schema version forced to %d\n", version)
				return nil
			})
		},
	}
}

func newMigrateVersionCmd(g *globalFlags, deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, g, deps, func(m Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return oops.Code("MIGRATION_STATUS_FAILED").Wrap(err)
				}
				if dirty {
					cmd.Printf("%d (dirty)\n", version)
					return nil
				}
				cmd.Println(version)
				return nil
			})
		},
	}
}
