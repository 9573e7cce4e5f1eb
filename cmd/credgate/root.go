// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/credgate/credgate/internal/config"
	"github.com/credgate/credgate/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the credgate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credgate",
		Short: "credgate - multi-site credential service",
		Long: `credgate serves login, registration and password reset for one or
more sites, each with its own record collection and email settings.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file path (default: $XDG_CONFIG_HOME/credgate/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadOptions points the loader at --config, or at the XDG default which may
// be absent.
func loadOptions(flags *pflag.FlagSet) (config.LoadOptions, error) {
	if configFile != "" {
		return config.LoadOptions{Path: configFile, Flags: flags}, nil
	}
	path, err := xdg.ConfigFile()
	if err != nil {
		return config.LoadOptions{}, err
	}
	return config.LoadOptions{Path: path, Optional: true, Flags: flags}, nil
}
