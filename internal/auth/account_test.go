// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credgate/credgate/internal/auth"
)

func TestNewAccount(t *testing.T) {
	hasher := auth.NewArgon2idHasherWithParams(fastParams)

	t.Run("normalizes email and hashes password", func(t *testing.T) {
		acc, err := auth.NewAccount(hasher, testTenant, auth.NewRecord{
			Email:    "  Ada@Example.COM ",
			Password: "p1",
			Profile:  map[string]any{"first": "Ada"},
		})
		require.NoError(t, err)

		assert.Equal(t, "ada@example.com", acc.Email)
		assert.NotEqual(t, "p1", acc.PasswordHash)
		assert.Equal(t, testTenant, acc.Tenant)
		assert.NotEmpty(t, acc.Identifier())
		assert.True(t, acc.VerifyPassword("p1"))
		assert.False(t, acc.VerifyPassword("p2"))
	})

	t.Run("rejects missing hasher", func(t *testing.T) {
		_, err := auth.NewAccount(nil, testTenant, auth.NewRecord{Email: "a@b.com", Password: "p"})
		assert.ErrorContains(t, err, "password hasher is required")
	})

	t.Run("rejects empty email", func(t *testing.T) {
		_, err := auth.NewAccount(hasher, testTenant, auth.NewRecord{Email: " ", Password: "p"})
		assert.ErrorContains(t, err, "email cannot be empty")
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := auth.NewAccount(hasher, testTenant, auth.NewRecord{Email: "a@b.com"})
		assert.ErrorContains(t, err, "password cannot be empty")
	})

	t.Run("profile is copied", func(t *testing.T) {
		profile := map[string]any{"first": "Ada"}
		acc, err := auth.NewAccount(hasher, testTenant, auth.NewRecord{Email: "a@b.com", Password: "p", Profile: profile})
		require.NoError(t, err)
		profile["first"] = "Grace"
		assert.Equal(t, "Ada", acc.Profile["first"])
	})
}

func TestAccount_Fields(t *testing.T) {
	acc := auth.RestoreAccount(nil, auth.Account{Email: "a@b.com", PasswordHash: "secret-hash", Profile: map[string]any{"first": "Ada"}})

	fields := acc.Fields()
	assert.Equal(t, map[string]any{"first": "Ada", "email": "a@b.com"}, fields)

	fields["first"] = "changed"
	assert.Equal(t, "Ada", acc.Profile["first"])
}

func TestAccount_SetPasswordIsHashedOnSeal(t *testing.T) {
	hasher := auth.NewArgon2idHasherWithParams(fastParams)
	acc, err := auth.NewAccount(hasher, testTenant, auth.NewRecord{Email: "a@b.com", Password: "p1"})
	require.NoError(t, err)
	oldHash := acc.PasswordHash

	acc.SetPassword("p2")
	assert.True(t, acc.HasPendingPassword())
	assert.Equal(t, oldHash, acc.PasswordHash, "hash only changes on seal")

	require.NoError(t, acc.Seal())
	assert.False(t, acc.HasPendingPassword())
	assert.NotEqual(t, oldHash, acc.PasswordHash)
	assert.True(t, acc.VerifyPassword("p2"))
	assert.False(t, acc.VerifyPassword("p1"))
}

func TestAccount_SealWithoutPendingIsNoop(t *testing.T) {
	acc := auth.RestoreAccount(nil, auth.Account{PasswordHash: "h"})
	require.NoError(t, acc.Seal())
	assert.Equal(t, "h", acc.PasswordHash)
}

func TestAccount_VerifyPasswordWithoutHasherFails(t *testing.T) {
	acc := auth.RestoreAccount(nil, auth.Account{PasswordHash: "h"})
	assert.False(t, acc.VerifyPassword("anything"))
}

func TestAccount_CloneIsIndependent(t *testing.T) {
	acc := auth.RestoreAccount(nil, auth.Account{Email: "a@b.com", Profile: map[string]any{"k": "v"}})
	acc.SetPassword("p")

	c := acc.Clone()
	c.Profile["k"] = "changed"
	assert.Equal(t, "v", acc.Profile["k"])
	assert.True(t, c.HasPendingPassword())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.com", auth.NormalizeEmail("  A@B.Com\t"))
	assert.Empty(t, auth.NormalizeEmail("   "))
}
