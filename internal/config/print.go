// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package config

import (
	"io"
	"net/url"
	"slices"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const redacted = "********"

// Redacted returns a copy with secrets masked.
func (c *Config) Redacted() Config {
	out := *c
	out.Sites = slices.Clone(c.Sites)
	if out.Token.Secret != "" {
		out.Token.Secret = redacted
	}
	if out.SMTP.Password != "" {
		out.SMTP.Password = redacted
	}
	out.Database.URL = redactURL(out.Database.URL)
	out.Token.RedisURL = redactURL(out.Token.RedisURL)
	return out
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return redacted
	}
	return u.Redacted()
}

// Print writes the redacted configuration as YAML.
func (c *Config) Print(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	r := c.Redacted()
	if err := enc.Encode(&r); err != nil {
		return oops.Code("CONFIG_PRINT_FAILED").Wrap(err)
	}
	return oops.Wrap(enc.Close())
}
