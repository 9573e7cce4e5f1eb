// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package xdg resolves credgate's XDG base directory paths.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "credgate"

// ConfigFileName is the file looked up in ConfigDir when --config is not set.
const ConfigFileName = "config.yaml"

// ConfigDir returns $XDG_CONFIG_HOME/credgate, falling back to
// ~/.config/credgate.
func ConfigDir() (string, error) {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", oops.Code("XDG_HOME_UNKNOWN").With("variable", "XDG_CONFIG_HOME").Wrap(err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigFile returns the default config file path.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}
