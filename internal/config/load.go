// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"os"

	"github.com/joho/godotenv"
	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Flag names bound to config keys.
const (
	FlagHTTPAddr       = "http-addr"
	FlagMetricsAddr    = "metrics-addr"
	FlagLogLevel       = "log-level"
	FlagLogFormat      = "log-format"
	FlagRateLimitStore = "ratelimit-store"
	FlagAutoMigrate    = "auto-migrate"
	FlagStore          = "store"
)

var flagKeys = map[string]string{
	FlagHTTPAddr:       "http.addr",
	FlagMetricsAddr:    "metrics.addr",
	FlagLogLevel:       "log.level",
	FlagLogFormat:      "log.format",
	FlagRateLimitStore: "ratelimit.store",
	FlagAutoMigrate:    "database.auto_migrate",
	FlagStore:          "database.backend",
}

// RegisterLogFlags adds the logging flags, defaulted from Default().
func RegisterLogFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagLogLevel, d.Log.Level, "log level (debug, info, warn, error)")
	fs.String(FlagLogFormat, d.Log.Format, "log format (json, text)")
}

// RegisterServeFlags adds the flags the serve command overrides.
func RegisterServeFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagHTTPAddr, d.HTTP.Addr, "API listen address")
	fs.String(FlagMetricsAddr, d.Metrics.Addr, "metrics and health listen address (empty to disable)")
	fs.String(FlagRateLimitStore, d.RateLimit.Store, "rate limit store (memory, redis)")
	fs.Bool(FlagAutoMigrate, d.Database.AutoMigrate, "apply pending migrations on startup")
	fs.String(FlagStore, d.Database.Backend, "persistence backend (postgres, memory)")
}

// Source lists where Load reads settings from.
type Source struct {
	// Path is a YAML file. Empty skips the file.
	Path string

	// Flags overrides file values for flags the user set explicitly.
	Flags *pflag.FlagSet

	// Getenv reads secrets. Defaults to os.Getenv.
	Getenv func(string) string
}

// Load builds a Config from defaults, then the YAML file, then flags,
// then secrets from the environment. The result is not validated.
func Load(src Source) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if src.Path != "" {
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return Config{}, oops.Code("CONFIG_READ_FAILED").With("path", src.Path).Wrap(err)
		}
		if err := ValidateYAML(data); err != nil {
			return Config{}, oops.Code("CONFIG_INVALID").With("path", src.Path).Wrap(err)
		}
		if err := k.Load(file.Provider(src.Path), koanfyaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_READ_FAILED").With("path", src.Path).Wrap(err)
		}
	}

	if src.Flags != nil {
		provider := posflag.ProviderWithFlag(src.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, f.Value.String()
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_READ_FAILED").With("source", "flags").Wrap(err)
		}
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	getenv := src.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg.DatabaseURL = getenv(EnvDatabaseURL)
	cfg.RedisURL = getenv(EnvRedisURL)
	cfg.SigningKey = getenv(EnvSigningKey)

	return cfg, nil
}

// LoadEnvFile loads a dotenv file into the process environment. Variables
// already set are not overridden.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return oops.Code("CONFIG_ENV_FILE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
