// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"maps"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Account is the CredentialRecord produced by the bundled record stores.
type Account struct {
	ID           ulid.ULID
	Tenant       Tenant
	Email        string
	PasswordHash string
	Profile      map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time

	hasher  PasswordHasher
	pending *string
}

var _ CredentialRecord = (*Account)(nil)

// NewAccount builds a new account for tenant, hashing the password with hasher.
func NewAccount(hasher PasswordHasher, tenant Tenant, rec NewRecord) (*Account, error) {
	if hasher == nil {
		return nil, oops.Code("ACCOUNT_INVALID").Errorf("password hasher is required")
	}
	email := NormalizeEmail(rec.Email)
	if email == "" {
		return nil, oops.Code("ACCOUNT_INVALID").Errorf("email cannot be empty")
	}

	hash, err := hasher.Hash(rec.Password)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID").With("tenant", tenant.String()).Wrap(err)
	}

	now := time.Now().UTC()
	return &Account{
		ID:           ulid.Make(),
		Tenant:       tenant,
		Email:        email,
		PasswordHash: hash,
		Profile:      cloneProfile(rec.Profile),
		CreatedAt:    now,
		UpdatedAt:    now,
		hasher:       hasher,
	}, nil
}

// RestoreAccount attaches hasher to an account loaded from storage.
func RestoreAccount(hasher PasswordHasher, a Account) *Account {
	a.hasher = hasher
	a.pending = nil
	if a.Profile == nil {
		a.Profile = map[string]any{}
	}
	return &a
}

// Identifier returns the ULID as a string.
func (a *Account) Identifier() string {
	return a.ID.String()
}

// Fields returns a copy of the profile with "email" set.
func (a *Account) Fields() map[string]any {
	out := cloneProfile(a.Profile)
	out["email"] = a.Email
	return out
}

// VerifyPassword checks plaintext against the stored hash. A malformed hash
// never verifies.
func (a *Account) VerifyPassword(plaintext string) bool {
	if a.hasher == nil || plaintext == "" {
		return false
	}
	ok, err := a.hasher.Verify(plaintext, a.PasswordHash)
	return err == nil && ok
}

// SetPassword stages plaintext to be hashed by Seal.
func (a *Account) SetPassword(plaintext string) {
	a.pending = &plaintext
}

// HasPendingPassword reports whether SetPassword was called since the last Seal.
func (a *Account) HasPendingPassword() bool {
	return a.pending != nil
}

// Seal hashes a staged password into PasswordHash and bumps UpdatedAt.
// Record stores call it on their save path.
func (a *Account) Seal() error {
	if a.pending == nil {
		return nil
	}
	if a.hasher == nil {
		return oops.Code("ACCOUNT_INVALID").With("id", a.Identifier()).Errorf("password hasher is required")
	}
	hash, err := a.hasher.Hash(*a.pending)
	if err != nil {
		return oops.Code("ACCOUNT_INVALID").With("id", a.Identifier()).Wrap(err)
	}
	a.PasswordHash = hash
	a.UpdatedAt = time.Now().UTC()
	a.pending = nil
	return nil
}

// Clone returns a deep copy that shares the hasher.
func (a *Account) Clone() *Account {
	c := *a
	c.Profile = cloneProfile(a.Profile)
	if a.pending != nil {
		p := *a.pending
		c.pending = &p
	}
	return &c
}

// NormalizeEmail trims surrounding space and lower-cases an email address.
// Every lookup and create goes through it so they agree on one form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneProfile(p map[string]any) map[string]any {
	out := make(map[string]any, len(p)+1)
	maps.Copy(out, p)
	return out
}
