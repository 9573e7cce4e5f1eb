// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package config defines the credgate configuration file, loads it with
// koanf (file, then command-line flags, then secrets from the environment)
// and validates it.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/logging"
	"github.com/credgate/credgate/internal/token"
)

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// DefaultSiteName is the site used when no host pattern matches.
const DefaultSiteName = "default"

// Config is the root of config.yaml.
type Config struct {
	Log             LogConfig           `koanf:"log" json:"log,omitempty" yaml:"log"`
	HTTP            HTTPConfig          `koanf:"http" json:"http,omitempty" yaml:"http"`
	Observability   ObservabilityConfig `koanf:"observability" json:"observability,omitempty" yaml:"observability"`
	Database        DatabaseConfig      `koanf:"database" json:"database,omitempty" yaml:"database"`
	Token           TokenConfig         `koanf:"token" json:"token,omitempty" yaml:"token"`
	PasswordHashing HashingConfig       `koanf:"password_hashing" json:"password_hashing,omitempty" yaml:"password_hashing"`
	SMTP            SMTPConfig          `koanf:"smtp" json:"smtp,omitempty" yaml:"smtp"`
	Sites           []SiteConfig        `koanf:"sites" json:"sites,omitempty" yaml:"sites"`
}

// LogConfig selects log output.
type LogConfig struct {
	Level  string `koanf:"level" json:"level,omitempty" yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format string `koanf:"format" json:"format,omitempty" yaml:"format" jsonschema:"enum=json,enum=text"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string `koanf:"addr" json:"addr,omitempty" yaml:"addr"`
	ReadTimeout     string `koanf:"read_timeout" json:"read_timeout,omitempty" yaml:"read_timeout" jsonschema:"description=Go duration, e.g. 15s"`
	ShutdownTimeout string `koanf:"shutdown_timeout" json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout"`
	// TrustProxy makes the API honour X-Forwarded-Host when resolving sites.
	TrustProxy bool `koanf:"trust_proxy" json:"trust_proxy,omitempty" yaml:"trust_proxy"`
}

// ObservabilityConfig configures the metrics and health listener. An empty
// address disables it.
type ObservabilityConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" yaml:"addr"`
}

// DatabaseConfig selects the record store.
type DatabaseConfig struct {
	Driver      string `koanf:"driver" json:"driver,omitempty" yaml:"driver" jsonschema:"enum=memory,enum=postgres"`
	URL         string `koanf:"url" json:"url,omitempty" yaml:"url" jsonschema:"description=Prefer the DATABASE_URL environment variable"`
	AutoMigrate bool   `koanf:"auto_migrate" json:"auto_migrate,omitempty" yaml:"auto_migrate"`
	MaxConns    int32  `koanf:"max_conns" json:"max_conns,omitempty" yaml:"max_conns" jsonschema:"minimum=0"`
}

// TokenConfig configures reset tokens.
type TokenConfig struct {
	Secret string `koanf:"secret" json:"secret,omitempty" yaml:"secret" jsonschema:"description=Prefer the CREDGATE_TOKEN_SECRET environment variable"`
	// SingleUse rejects a reset token after its first successful use.
	// Requires RedisURL.
	SingleUse bool   `koanf:"single_use" json:"single_use,omitempty" yaml:"single_use"`
	RedisURL  string `koanf:"redis_url" json:"redis_url,omitempty" yaml:"redis_url"`
}

// HashingConfig tunes argon2id. Zero values use auth.DefaultArgon2Params.
type HashingConfig struct {
	Time      uint32 `koanf:"time" json:"time,omitempty" yaml:"time"`
	MemoryKiB uint32 `koanf:"memory_kib" json:"memory_kib,omitempty" yaml:"memory_kib"`
	Threads   uint8  `koanf:"threads" json:"threads,omitempty" yaml:"threads"`
}

// SMTPConfig configures outbound email. An empty host logs emails instead.
type SMTPConfig struct {
	Host     string `koanf:"host" json:"host,omitempty" yaml:"host"`
	Port     int    `koanf:"port" json:"port,omitempty" yaml:"port" jsonschema:"minimum=0,maximum=65535"`
	Username string `koanf:"username" json:"username,omitempty" yaml:"username"`
	Password string `koanf:"password" json:"password,omitempty" yaml:"password"`
	From     string `koanf:"from" json:"from,omitempty" yaml:"from"`
}

// SiteConfig is one tenant served by the API.
type SiteConfig struct {
	Name        string       `koanf:"name" json:"name" yaml:"name" jsonschema:"minLength=1"`
	Hosts       []string     `koanf:"hosts" json:"hosts,omitempty" yaml:"hosts"`
	APIBasePath string       `koanf:"api_base_path" json:"api_base_path,omitempty" yaml:"api_base_path"`
	Collection  string       `koanf:"collection" json:"collection,omitempty" yaml:"collection"`
	BaseURL     string       `koanf:"base_url" json:"base_url,omitempty" yaml:"base_url"`
	Email       *EmailConfig `koanf:"email" json:"email,omitempty" yaml:"email,omitempty"`
}

// EmailConfig enables registration and reset emails for a site.
type EmailConfig struct {
	From          string         `koanf:"from" json:"from,omitempty" yaml:"from,omitempty"`
	Register      TemplateConfig `koanf:"register" json:"register,omitempty" yaml:"register"`
	ResetPassword TemplateConfig `koanf:"reset_password" json:"reset_password,omitempty" yaml:"reset_password"`
	LinkExpiresIn string         `koanf:"link_expires_in" json:"link_expires_in,omitempty" yaml:"link_expires_in" jsonschema:"description=e.g. 10m, 1h, 2 days"`
}

// TemplateConfig overrides an email's subject or body file.
type TemplateConfig struct {
	Subject  string `koanf:"subject" json:"subject,omitempty" yaml:"subject,omitempty"`
	Template string `koanf:"template" json:"template,omitempty" yaml:"template,omitempty" jsonschema:"description=Path to an html/template file"`
}

// Default returns the configuration used before any source is applied.
func Default() Config {
	return Config{
		Log:  LogConfig{Level: "info", Format: "json"},
		HTTP: HTTPConfig{Addr: ":8080", ReadTimeout: "15s", ShutdownTimeout: "10s"},
		Observability: ObservabilityConfig{
			Addr: "127.0.0.1:9100",
		},
		Database: DatabaseConfig{Driver: DriverMemory},
		SMTP:     SMTPConfig{Port: 587},
	}
}

// normalize fills per-site defaults.
func (c *Config) normalize() {
	for i := range c.Sites {
		s := &c.Sites[i]
		s.Name = strings.TrimSpace(s.Name)
		if s.APIBasePath == "" {
			s.APIBasePath = "/api"
		}
		if !strings.HasPrefix(s.APIBasePath, "/") {
			s.APIBasePath = "/" + s.APIBasePath
		}
		if len(s.APIBasePath) > 1 {
			s.APIBasePath = strings.TrimRight(s.APIBasePath, "/")
		}
		if s.Collection == "" {
			s.Collection = auth.DefaultCollection
		}
		if s.Email != nil && s.Email.LinkExpiresIn == "" {
			s.Email.LinkExpiresIn = "10m"
		}
	}
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, oops.With("field", field).Errorf("%s: %s", field, fmt.Sprintf(format, args...)))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		fail("log.level", "unknown level %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		fail("log.format", "must be json or text, got %q", c.Log.Format)
	}

	if c.HTTP.Addr == "" {
		fail("http.addr", "is required")
	}
	for field, v := range map[string]string{
		"http.read_timeout":     c.HTTP.ReadTimeout,
		"http.shutdown_timeout": c.HTTP.ShutdownTimeout,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			fail(field, "must be a positive duration, got %q", v)
		}
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.URL == "" {
			fail("database.url", "is required for the postgres driver (set DATABASE_URL)")
		}
	default:
		fail("database.driver", "must be memory or postgres, got %q", c.Database.Driver)
	}

	if len(c.Token.Secret) < token.MinSecretLen {
		fail("token.secret", "must be at least %d bytes (set CREDGATE_TOKEN_SECRET)", token.MinSecretLen)
	}
	if c.Token.SingleUse && c.Token.RedisURL == "" {
		fail("token.redis_url", "is required when token.single_use is set (set CREDGATE_REDIS_URL)")
	}

	if len(c.Sites) == 0 {
		fail("sites", "at least one site is required")
	}
	seen := make(map[string]bool, len(c.Sites))
	for i, s := range c.Sites {
		prefix := fmt.Sprintf("sites[%d]", i)
		if s.Name == "" {
			fail(prefix+".name", "is required")
		} else if seen[s.Name] {
			fail(prefix+".name", "duplicate site %q", s.Name)
		}
		seen[s.Name] = true

		for j, h := range s.Hosts {
			if _, err := glob.Compile(strings.ToLower(h), '.'); err != nil {
				fail(fmt.Sprintf("%s.hosts[%d]", prefix, j), "invalid pattern %q", h)
			}
		}
		if s.BaseURL != "" {
			if u, err := url.Parse(s.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
				fail(prefix+".base_url", "must be an absolute URL, got %q", s.BaseURL)
			}
		}
		if s.Email != nil {
			if _, err := token.ParseExpiry(s.Email.LinkExpiresIn); err != nil {
				fail(prefix+".email.link_expires_in", "invalid expiry %q", s.Email.LinkExpiresIn)
			}
			if c.SMTP.Host != "" && s.Email.From == "" && c.SMTP.From == "" {
				fail(prefix+".email.from", "a sender is required when smtp.host is set")
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return oops.Code("CONFIG_INVALID").Wrap(errors.Join(errs...))
}

// ReadTimeout returns the parsed http.read_timeout. Call after Validate.
func (c *Config) ReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.HTTP.ReadTimeout) //nolint:errcheck // validated
	return d
}

// ShutdownTimeout returns the parsed http.shutdown_timeout. Call after Validate.
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := time.ParseDuration(c.HTTP.ShutdownTimeout) //nolint:errcheck // validated
	return d
}

// Argon2Params converts password_hashing to hasher parameters.
func (c *Config) Argon2Params() auth.Argon2Params {
	return auth.Argon2Params{
		Time:    c.PasswordHashing.Time,
		Memory:  c.PasswordHashing.MemoryKiB,
		Threads: c.PasswordHashing.Threads,
	}
}

// LinkExpiry returns the parsed link lifetime. Call after Validate.
func (e *EmailConfig) LinkExpiry() time.Duration {
	d, err := token.ParseExpiry(e.LinkExpiresIn)
	if err != nil {
		return auth.DefaultResetLinkExpiry
	}
	return d
}
