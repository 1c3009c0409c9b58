// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/internal/logging"
	"github.com/holomush/authcore/internal/xdg"
)

const serviceName = "authcore"

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configFile string
	envFile    string
}

// NewRootCmd creates the root command for the authcore CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithDeps(nil)
}

// newRootCmdWithDeps creates the root command with injectable
// dependencies. If deps is nil, default implementations are used.
func newRootCmdWithDeps(deps *Deps) *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "authcore",
		Short: "authcore - dual-credential authentication service",
		Long: `authcore authenticates callers with short-lived signed access tokens
or long-lived scoped API keys, rotates refresh tokens and rate limits
every credential operation.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&g.configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/authcore/config.yaml if present)")
	cmd.PersistentFlags().StringVar(&g.envFile, "env-file", "", "dotenv file loaded before reading secrets")
	config.RegisterLogFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(g, deps))
	cmd.AddCommand(NewMigrateCmd(g, deps))
	cmd.AddCommand(NewAccountsCmd(g, deps))
	cmd.AddCommand(NewKeysCmd(g, deps))
	cmd.AddCommand(NewTokensCmd(g, deps))
	cmd.AddCommand(NewConfigCmd(g))

	return cmd
}

// configPath is the --config value, or the XDG default when it exists.
func (g *globalFlags) configPath() string {
	if g.configFile != "" {
		return g.configFile
	}
	return xdg.DefaultConfigFile()
}

// load reads and validates the configuration for cmd and installs the
// process logger.
func (g *globalFlags) load(cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadEnvFile(g.envFile); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(config.Source{Path: g.configPath(), Flags: cmd.Flags()})
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if err := logging.SetLevel(cfg.Log.Level); err != nil {
		return config.Config{}, err
	}
	logging.SetDefault(serviceName, version, cfg.Log.Format)
	return cfg, nil
}
