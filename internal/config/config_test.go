// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credgate/credgate/internal/config"
	"github.com/credgate/credgate/pkg/errutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func validConfig() config.Config {
	cfg := config.Default()
	cfg.Token.Secret = testSecret
	cfg.Sites = []config.SiteConfig{{Name: "default", APIBasePath: "/api", Collection: "User"}}
	return cfg
}

func TestLoad_FileFlagsAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
http:
  addr: ":9000"
database:
  driver: postgres
sites:
  - name: shop
    hosts: ["shop.example.com", "*.shop.example.com"]
    api_base_path: auth/
    base_url: https://shop.example.com
    email:
      from: shop@example.com
      link_expires_in: 2 days
  - name: default
`)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("http-addr", ":8080", "")
	fs.String("log-format", "json", "")
	fs.Bool("verbose", false, "")
	require.NoError(t, fs.Parse([]string{"--http-addr=:7000", "--verbose"}))

	cfg, err := config.Load(config.LoadOptions{
		Path:  path,
		Flags: fs,
		Environ: map[string]string{
			"DATABASE_URL":          "postgres://u:p@db/credgate",
			"CREDGATE_TOKEN_SECRET": testSecret,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format, "unchanged flag keeps the default")
	assert.Equal(t, ":7000", cfg.HTTP.Addr, "flag overrides file")
	assert.Equal(t, "postgres://u:p@db/credgate", cfg.Database.URL)
	assert.Equal(t, testSecret, cfg.Token.Secret)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout())

	require.Len(t, cfg.Sites, 2)
	shop := cfg.Sites[0]
	assert.Equal(t, "/auth", shop.APIBasePath)
	assert.Equal(t, "User", shop.Collection)
	require.NotNil(t, shop.Email)
	assert.Equal(t, 48*time.Hour, shop.Email.LinkExpiry())
	assert.Equal(t, "/api", cfg.Sites[1].APIBasePath)
	assert.Nil(t, cfg.Sites[1].Email)
}

func TestLoad_EmailDefaultsLinkExpiry(t *testing.T) {
	path := writeConfig(t, `
sites:
  - name: default
    email: {}
`)
	cfg, err := config.Load(config.LoadOptions{Path: path, Environ: map[string]string{"CREDGATE_TOKEN_SECRET": testSecret}})
	require.NoError(t, err)
	assert.Equal(t, "10m", cfg.Sites[0].Email.LinkExpiresIn)
	assert.Equal(t, 10*time.Minute, cfg.Sites[0].Email.LinkExpiry())
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := config.Load(config.LoadOptions{Path: missing})
	errutil.AssertErrorCode(t, err, "CONFIG_READ_FAILED")

	cfg, err := config.LoadUnvalidated(config.LoadOptions{Path: missing, Optional: true, Environ: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, config.Default().HTTP.Addr, cfg.HTTP.Addr)
}

func TestLoad_SchemaRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "htp:\n  addr: \":1\"\n")
	_, err := config.Load(config.LoadOptions{Path: path})
	errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_INVALID")
}

func TestLoad_SecretsFromEnvironment(t *testing.T) {
	cfg, err := config.LoadUnvalidated(config.LoadOptions{Environ: map[string]string{
		"CREDGATE_SMTP_PASSWORD": "hunter2",
		"CREDGATE_REDIS_URL":     "redis://cache:6379/0",
	}})
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.SMTP.Password)
	assert.Equal(t, "redis://cache:6379/0", cfg.Token.RedisURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"valid", func(*config.Config) {}, ""},
		{"bad log level", func(c *config.Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad timeout", func(c *config.Config) { c.HTTP.ReadTimeout = "soon" }, "http.read_timeout"},
		{"unknown driver", func(c *config.Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"postgres without url", func(c *config.Config) { c.Database.Driver = config.DriverPostgres }, "database.url"},
		{"short secret", func(c *config.Config) { c.Token.Secret = "short" }, "token.secret"},
		{"single use without redis", func(c *config.Config) { c.Token.SingleUse = true }, "token.redis_url"},
		{"no sites", func(c *config.Config) { c.Sites = nil }, "at least one site"},
		{"duplicate site", func(c *config.Config) {
			c.Sites = append(c.Sites, config.SiteConfig{Name: "default"})
		}, "duplicate site"},
		{"bad host glob", func(c *config.Config) { c.Sites[0].Hosts = []string{"[abc"} }, "hosts[0]"},
		{"relative base url", func(c *config.Config) { c.Sites[0].BaseURL = "/relative" }, "base_url"},
		{"bad link expiry", func(c *config.Config) {
			c.Sites[0].Email = &config.EmailConfig{LinkExpiresIn: "0s"}
		}, "link_expires_in"},
		{"smtp without sender", func(c *config.Config) {
			c.SMTP.Host = "mail.example.com"
			c.Sites[0].Email = &config.EmailConfig{LinkExpiresIn: "10m"}
		}, "email.from"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := config.Default()
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "token.secret")
	assert.ErrorContains(t, err, "at least one site")
}

func TestArgon2Params(t *testing.T) {
	cfg := validConfig()
	cfg.PasswordHashing = config.HashingConfig{Time: 2, MemoryKiB: 4096, Threads: 2}
	p := cfg.Argon2Params()
	assert.Equal(t, uint32(2), p.Time)
	assert.Equal(t, uint32(4096), p.Memory)
	assert.Equal(t, uint8(2), p.Threads)
}

func TestPrint_RedactsSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Database.URL = "postgres://credgate:s3cret@db:5432/credgate"
	cfg.SMTP.Password = "hunter2"

	var buf bytes.Buffer
	require.NoError(t, cfg.Print(&buf))
	out := buf.String()

	assert.NotContains(t, out, testSecret)
	assert.NotContains(t, out, "s3cret")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "********")
	assert.True(t, strings.Contains(out, "name: default"))

	assert.Equal(t, testSecret, cfg.Token.Secret, "original is untouched")
}
