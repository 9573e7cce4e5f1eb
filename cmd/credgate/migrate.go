// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/credgate/credgate/internal/config"
)

// migratorFactory is replaced in tests.
var migratorFactory = newMigrator

// NewMigrateCmd creates the migrate subcommand. Without a subcommand it
// applies every pending migration.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Apply, roll back or inspect the credential_records schema. The database
URL comes from database.url or the DATABASE_URL environment variable.`,
		RunE: withMigrator(migrateUpCmd),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE:  withMigrator(migrateUpCmd),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m Migrator, _ []string) error {
			if err := m.Steps(-1); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "roll back").Wrap(err)
			}
			cmd.Println("Rolled back one migration")
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE:  withMigrator(migrateStatusCmd),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m Migrator, _ []string) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err //nolint:wrapcheck // migrator errors carry their own context
			}
			cmd.Println(formatVersion(v, dirty))
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Mark the schema as being at VERSION and clear the dirty flag. Use after
repairing a failed migration by hand. -1 means no migrations applied.`,
		Args: cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m Migrator, args []string) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(v); err != nil {
				return err //nolint:wrapcheck // migrator errors carry their own context
			}
			cmd.Printf("Forced schema version to %d\n", v)
			return nil
		}),
	})

	return cmd
}

func withMigrator(run func(cmd *cobra.Command, m Migrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		url, err := getDatabaseURL()
		if err != nil {
			return err
		}
		m, err := migratorFactory(url)
		if err != nil {
			return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
		}
		defer func() {
			if err := m.Close(); err != nil {
				cmd.PrintErrf("warning: closing migrator: %v\n", err)
			}
		}()
		return run(cmd, m, args)
	}
}

func migrateUpCmd(cmd *cobra.Command, m Migrator, _ []string) error {
	cmd.Println("Running migrations...")
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	v, dirty, err := m.Version()
	if err != nil {
		return err //nolint:wrapcheck // migrator errors carry their own context
	}
	cmd.Printf("Migrations completed successfully (%s)\n", formatVersion(v, dirty))
	return nil
}

func migrateStatusCmd(cmd *cobra.Command, m Migrator, _ []string) error {
	status, err := m.Status()
	if err != nil {
		return err //nolint:wrapcheck // migrator errors carry their own context
	}
	cmd.Println(formatVersion(status.Version, status.Dirty))
	for _, mig := range status.Applied {
		cmd.Printf("  [applied] %s\n", mig.Name)
	}
	for _, mig := range status.Pending {
		cmd.Printf("  [pending] %s\n", mig.Name)
	}
	return nil
}

func formatVersion(v uint, dirty bool) string {
	if dirty {
		return fmt.Sprintf("version %d (dirty)", v)
	}
	return fmt.Sprintf("version %d", v)
}

// getDatabaseURL reads the database URL from the config file and
// environment without requiring the rest of the config to be valid.
func getDatabaseURL() (string, error) {
	opts, err := loadOptions(nil)
	if err != nil {
		return "", err
	}
	cfg, err := config.LoadUnvalidated(opts)
	if err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", oops.Code("CONFIG_INVALID").Errorf("database url is required (set DATABASE_URL or database.url)")
	}
	return cfg.Database.URL, nil
}

// parseForceVersion reads the leading integer of s.
func parseForceVersion(s string) (int, error) {
	s = strings.TrimSpace(s)
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrapf(err, "version must be an integer")
	}
	return v, nil
}
