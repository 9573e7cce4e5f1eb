// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/auth/postgres"
)

func cleanupTenant(t *testing.T, tenant auth.Tenant) {
	t.Cleanup(func() {
		_, _ = testPool.Exec(context.Background(),
			`DELETE FROM credential_records WHERE tenant_id = $1`, tenant.ID)
	})
}

func TestRecordStoreIntegration_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tenant := auth.Tenant{ID: "roundtrip", Collection: "User"}
	cleanupTenant(t, tenant)
	store := postgres.NewRecordStore(testPool, fastHasher)

	created, err := store.Create(ctx, tenant, auth.NewRecord{
		Email:    "Ada@Example.com",
		Password: "p1",
		Profile:  map[string]any{"first": "Ada", "age": 36},
	})
	require.NoError(t, err)

	found, err := store.FindByEmail(ctx, tenant, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.Identifier(), found.Identifier())
	assert.Equal(t, "Ada", found.Fields()["first"])
	assert.InDelta(t, 36, found.Fields()["age"], 0)

	cred := found.(auth.CredentialRecord)
	assert.True(t, cred.VerifyPassword("p1"))

	cred.SetPassword("p2")
	require.NoError(t, store.Save(ctx, cred))

	reloaded, err := store.FindByID(ctx, tenant, created.Identifier())
	require.NoError(t, err)
	assert.True(t, reloaded.(auth.CredentialRecord).VerifyPassword("p2"))
	assert.False(t, reloaded.(auth.CredentialRecord).VerifyPassword("p1"))
}

func TestRecordStoreIntegration_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	a := auth.Tenant{ID: "iso-a", Collection: "User"}
	b := auth.Tenant{ID: "iso-b", Collection: "User"}
	cleanupTenant(t, a)
	cleanupTenant(t, b)
	store := postgres.NewRecordStore(testPool, fastHasher)

	_, err := store.Create(ctx, a, auth.NewRecord{Email: "same@example.com", Password: "p"})
	require.NoError(t, err)

	_, err = store.FindByEmail(ctx, b, "same@example.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	_, err = store.Create(ctx, b, auth.NewRecord{Email: "same@example.com", Password: "p"})
	require.NoError(t, err)
}

func TestRecordStoreIntegration_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	tenant := auth.Tenant{ID: "race", Collection: "User"}
	cleanupTenant(t, tenant)
	store := postgres.NewRecordStore(testPool, fastHasher)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Create(ctx, tenant, auth.NewRecord{Email: "race@example.com", Password: "p"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, auth.ErrDuplicate):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
}
