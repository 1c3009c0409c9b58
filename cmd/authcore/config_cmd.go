// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/internal/xdg"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}
	cmd.AddCommand(newConfigSchemaCmd(), newConfigValidateCmd(g), newConfigInitCmd())
	return cmd
}

func newConfigSchemaCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.Schema()
			if err != nil {
				return err
			}
			schema = append(schema, '\n')
			if output == "" {
				_, err := cmd.OutOrStdout().Write(schema)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
				return oops.Code("CONFIG_WRITE_FAILED").With("path", output).Wrap(err)
			}
			if err := os.WriteFile(output, schema, 0o600); err != nil {
				return oops.Code("CONFIG_WRITE_FAILED").With("path", output).Wrap(err)
			}
			cmd.Printf("Generated %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the schema to this file instead of stdout")
	return cmd
}

func newConfigValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate a config file",
		Long: `Validate a config file against the schema and the value rules.
Without FILE the --config file, or the XDG default, is checked.
Secrets are not required.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath()
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return oops.Code("INVALID_ARGUMENT").Errorf("no config file given and %s does not exist", xdg.ConfigFile())
			}
			cfg, err := config.Load(config.Source{Path: path})
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			cmd.Printf("%s is valid\n", path)
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var (
		path  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = xdg.ConfigFile()
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return oops.Code("CONFIG_EXISTS").With("path", path).Errorf("%s already exists; pass --force to overwrite", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return oops.Code("CONFIG_WRITE_FAILED").With("path", path).Wrap(err)
				}
			}
			if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
				return err
			}
			if err := os.WriteFile(path, config.DefaultFile(), 0o600); err != nil {
				return oops.Code("CONFIG_WRITE_FAILED").With("path", path).Wrap(err)
			}
			cmd.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "destination (default $XDG_CONFIG_HOME/authcore/config.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
