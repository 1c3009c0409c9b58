// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/internal/config"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	out, err := execute(t, nil, "", "--help")
	require.NoError(t, err)

	for _, sub := range []string{"serve", "migrate", "accounts", "keys", "tokens", "config"} {
		assert.Contains(t, out, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	cmd := NewRootCmd()
	flags := cmd.PersistentFlags()

	for _, name := range []string{"config", "env-file", config.FlagLogLevel, config.FlagLogFormat} {
		assert.NotNil(t, flags.Lookup(name), "missing persistent flag %q", name)
	}
	assert.Equal(t, "info", flags.Lookup(config.FlagLogLevel).DefValue)
	assert.Equal(t, "json", flags.Lookup(config.FlagLogFormat).DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	serve, _, err := NewRootCmd().Find([]string{"serve"})
	require.NoError(t, err)

	tests := []struct {
		name string
		def  string
	}{
		{config.FlagHTTPAddr, "127.0.0.1:8080"},
		{config.FlagMetricsAddr, "127.0.0.1:9100"},
		{config.FlagRateLimitStore, config.StoreMemory},
		{config.FlagAutoMigrate, "false"},
		{config.FlagStore, config.BackendPostgres},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := serve.Flags().Lookup(tt.name)
			require.NotNil(t, f)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestRootCommand_VersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "test-version"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "test-version")
}

func TestGlobalFlags_ConfigPath(t *testing.T) {
	isolate(t)

	g := &globalFlags{}
	assert.Empty(t, g.configPath(), "missing XDG file is skipped")

	g.configFile = "/etc/authcore.yaml"
	assert.Equal(t, "/etc/authcore.yaml", g.configPath())
}

func TestGlobalFlags_LoadRejectsInvalidConfig(t *testing.T) {
	isolate(t)

	_, err := execute(t, nil, "", "--log-level", "loud", "migrate", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}
