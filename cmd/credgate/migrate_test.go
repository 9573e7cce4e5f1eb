// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credgate/credgate/internal/store"
	"github.com/credgate/credgate/pkg/errutil"
)

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErrCode string
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "negative is valid", input: "-1", wantVersion: -1},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
		{name: "trailing chars are ignored", input: "3abc", wantVersion: 3},
		{name: "non-numeric returns error", input: "abc", wantErrCode: "INVALID_VERSION"},
		{name: "empty string returns error", input: "", wantErrCode: "INVALID_VERSION"},
		{name: "whitespace only returns error", input: "   ", wantErrCode: "INVALID_VERSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)
			if tt.wantErrCode != "" {
				errutil.AssertErrorCode(t, err, tt.wantErrCode)
				assert.Equal(t, 0, version)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

func TestGetDatabaseURL(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		envValue    string
		wantURL     string
		wantErrCode string
	}{
		{
			name:        "missing everywhere",
			file:        "log: {level: info}\n",
			wantErrCode: "CONFIG_INVALID",
		},
		{
			name:    "from config file",
			file:    "database: {url: \"postgres://file/db\"}\n",
			wantURL: "postgres://file/db",
		},
		{
			name:     "environment wins over file",
			file:     "database: {url: \"postgres://file/db\"}\n",
			envValue: "postgres://env/db",
			wantURL:  "postgres://env/db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useConfig(t, tt.file)
			t.Setenv("DATABASE_URL", tt.envValue)

			url, err := getDatabaseURL()
			if tt.wantErrCode != "" {
				errutil.AssertErrorCode(t, err, tt.wantErrCode)
				assert.Empty(t, url)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, url)
		})
	}
}

func runMigrate(t *testing.T, m *mockMigrator, args ...string) (string, error) {
	t.Helper()
	useConfig(t, "")
	t.Setenv("DATABASE_URL", "postgres://localhost/credgate")

	var gotURL string
	orig := migratorFactory
	migratorFactory = func(url string) (Migrator, error) {
		gotURL = url
		return m, nil
	}
	t.Cleanup(func() { migratorFactory = orig })

	cmd := NewMigrateCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	assert.Equal(t, "postgres://localhost/credgate", gotURL)
	return out.String(), err
}

func TestMigrateCommands(t *testing.T) {
	t.Run("up", func(t *testing.T) {
		m := &mockMigrator{}
		m.On("Up").Return(nil)
		m.On("Version").Return(uint(2), false, nil)
		m.On("Close").Return(nil)

		out, err := runMigrate(t, m, "up")
		require.NoError(t, err)
		assert.Contains(t, out, "Migrations completed successfully (version 2)")
		m.AssertExpectations(t)
	})

	t.Run("bare migrate runs up", func(t *testing.T) {
		m := &mockMigrator{}
		m.On("Up").Return(nil)
		m.On("Version").Return(uint(1), false, nil)
		m.On("Close").Return(nil)

		_, err := runMigrate(t, m)
		require.NoError(t, err)
		m.AssertExpectations(t)
	})

	t.Run("up failure", func(t *testing.T) {
		m := &mockMigrator{}
		m.On("Up").Return(errors.New("boom"))
		m.On("Close").Return(nil)

		_, err := runMigrate(t, m, "up")
		errutil.AssertErrorCode(t, err, "MIGRATION_FAILED")
		m.AssertExpectations(t)
	})

	t.Run("down rolls back one step", func(t *testing.T) {
		m := &mockMigrator{}
		m.On("Steps", -1).Return(nil)
		m.On("Close").Return(nil)

		out, err := runMigrate(t, m, "down")
		require.NoError(t, err)
		assert.Contains(t, out, "Rolled back one migration")
		m.AssertExpectations(t)
	})

	t.Run("status", func(t *testing.T) {
		m := &mockMigrator{}
		m.On("Status").Return(store.Status{
			Version: 1,
			Applied: []store.Migration{{Version: 1, Name: "000001_credential_records"}},
			Pending: []store.Migration{{Version: 2, Name: "000002_email_normalized"}},
		}, nil)
		m.On("Close").Return(nil)

		out, err := runMigrate(t, m, "status")
		require.NoError(t, err)
		assert.Contains(t, out, "version 1")
		assert.Contains(t, out, "[applied] 000001_credential_records")
		assert.Contains(t, out, "[pending] 000002_email_normalized")
	})

	t.Run("version dirty", func(t *testing.T) {
		m := &mockMigrator{}
		m.On("Version").Return(uint(2), true, nil)
		m.On("Close").Return(nil)

		out, err := runMigrate(t, m, "version")
		require.NoError(t, err)
		assert.Contains(t, out, "version 2 (dirty)")
	})

	t.Run("force", func(t *testing.T) {
		m := &mockMigrator{}
		m.On("Force", 1).Return(nil)
		m.On("Close").Return(nil)

		out, err := runMigrate(t, m, "force", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "Forced schema version to 1")
		m.AssertExpectations(t)
	})

	t.Run("force rejects non-numeric version", func(t *testing.T) {
		m := &mockMigrator{}
		m.On("Close").Return(nil)

		_, err := runMigrate(t, m, "force", "latest")
		errutil.AssertErrorCode(t, err, "INVALID_VERSION")
		m.AssertNotCalled(t, "Force", 0)
	})
}

func TestMigrate_FactoryFailure(t *testing.T) {
	useConfig(t, "")
	t.Setenv("DATABASE_URL", "postgres://localhost/credgate")
	orig := migratorFactory
	migratorFactory = func(string) (Migrator, error) { return nil, errors.New("unreachable") }
	t.Cleanup(func() { migratorFactory = orig })

	cmd := NewMigrateCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"up"})
	errutil.AssertErrorCode(t, cmd.Execute(), "DB_CONNECT_FAILED")
}
