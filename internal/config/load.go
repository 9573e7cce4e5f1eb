// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// flagKeys maps command-line flags to config keys. Flags not listed here
// are not configuration.
var flagKeys = map[string]string{
	"http-addr":          "http.addr",
	"observability-addr": "observability.addr",
	"log-level":          "log.level",
	"log-format":         "log.format",
	"database-driver":    "database.driver",
	"auto-migrate":       "database.auto_migrate",
}

// secrets are only read from the environment.
type secrets struct {
	DatabaseURL  string `env:"DATABASE_URL"`
	TokenSecret  string `env:"CREDGATE_TOKEN_SECRET"`
	SMTPPassword string `env:"CREDGATE_SMTP_PASSWORD"`
	RedisURL     string `env:"CREDGATE_REDIS_URL"`
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// Path is the YAML file. Empty skips the file.
	Path string
	// Optional makes a missing file equivalent to an empty one.
	Optional bool
	// Flags supplies overrides. Only flags the user changed are applied.
	Flags *pflag.FlagSet
	// Environ replaces the process environment, mainly for tests.
	Environ map[string]string
}

// Load builds the effective configuration: defaults, then the file, then
// flags, then environment secrets. The result is validated.
func Load(opts LoadOptions) (*Config, error) {
	cfg, err := load(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnvalidated is Load without the final Validate, for commands that
// only need part of the config.
func LoadUnvalidated(opts LoadOptions) (*Config, error) {
	return load(opts)
}

func load(opts LoadOptions) (*Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if opts.Path != "" {
		data, err := os.ReadFile(opts.Path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && opts.Optional:
		case err != nil:
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", opts.Path).Wrap(err)
		default:
			if err := ValidateYAML(data); err != nil {
				return nil, oops.With("path", opts.Path).Wrap(err)
			}
			if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
				return nil, oops.Code("CONFIG_READ_FAILED").With("path", opts.Path).Wrap(err)
			}
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	if err := applySecrets(&cfg, opts.Environ); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

func applySecrets(cfg *Config, environ map[string]string) error {
	var s secrets
	if err := env.ParseWithOptions(&s, env.Options{Environment: environ}); err != nil {
		return oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}
	if s.DatabaseURL != "" {
		cfg.Database.URL = s.DatabaseURL
	}
	if s.TokenSecret != "" {
		cfg.Token.Secret = s.TokenSecret
	}
	if s.SMTPPassword != "" {
		cfg.SMTP.Password = s.SMTPPassword
	}
	if s.RedisURL != "" {
		cfg.Token.RedisURL = s.RedisURL
	}
	return nil
}
