// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import "context"

// DefaultCollection is the record collection used when a site does not name one.
const DefaultCollection = "User"

// Tenant identifies the record collection a flow reads and writes.
type Tenant struct {
	ID         string
	Collection string
}

// String renders the tenant for logs.
func (t Tenant) String() string {
	return t.ID + "/" + t.Collection
}

// Record is a stored identity as returned by a RecordStore.
type Record interface {
	// Identifier returns the opaque record id.
	Identifier() string

	// Fields returns the record's profile fields plus "email". Password
	// material is never included.
	Fields() map[string]any
}

// CredentialRecord is a Record that can check and replace its password.
type CredentialRecord interface {
	Record

	// VerifyPassword reports whether plaintext matches the stored credential.
	VerifyPassword(plaintext string) bool

	// SetPassword stages a new plaintext password. The RecordStore hashes it
	// when the record is saved.
	SetPassword(plaintext string)
}

// NewRecord holds the fields for a record about to be created.
type NewRecord struct {
	Email    string
	Password string
	Profile  map[string]any
}

// RecordStore persists credential records for one or more tenants.
//
// Lookups return ErrNotFound when nothing matches. Create returns
// ErrDuplicate when a record with the same email already exists in the
// tenant's collection. Implementations wrap both with oops; match them with
// errors.Is.
type RecordStore interface {
	// FindByEmail looks up a record by its lower-cased email.
	FindByEmail(ctx context.Context, tenant Tenant, email string) (Record, error)

	// FindByID looks up a record by identifier.
	FindByID(ctx context.Context, tenant Tenant, id string) (Record, error)

	// Create hashes the password and stores a new record.
	Create(ctx context.Context, tenant Tenant, rec NewRecord) (Record, error)

	// Save persists changes to an existing record, hashing any staged password.
	Save(ctx context.Context, rec Record) error
}
