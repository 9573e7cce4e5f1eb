// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package postgres provides a PostgreSQL-backed auth.RecordStore.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth"
)

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectColumns = `id, tenant_id, collection, email, password_hash, profile, created_at, updated_at`

// RecordStore implements auth.RecordStore over the credential_records table.
type RecordStore struct {
	db     DB
	hasher auth.PasswordHasher
}

var _ auth.RecordStore = (*RecordStore)(nil)

// NewRecordStore creates a RecordStore. Passwords are hashed with hasher.
func NewRecordStore(db DB, hasher auth.PasswordHasher) *RecordStore {
	return &RecordStore{db: db, hasher: hasher}
}

// FindByEmail implements auth.RecordStore.
func (r *RecordStore) FindByEmail(ctx context.Context, tenant auth.Tenant, email string) (auth.Record, error) {
	email = auth.NormalizeEmail(email)
	row := r.db.QueryRow(ctx, `
		SELECT `+selectColumns+`
		FROM credential_records
		WHERE tenant_id = $1 AND collection = $2 AND email = $3
	`, tenant.ID, tenant.Collection, email)

	acc, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RECORD_NOT_FOUND").
			With("tenant", tenant.String()).
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RECORD_FIND_BY_EMAIL_FAILED").
			With("operation", "find record by email").
			With("tenant", tenant.String()).
			Wrap(err)
	}
	return acc, nil
}

// FindByID implements auth.RecordStore.
func (r *RecordStore) FindByID(ctx context.Context, tenant auth.Tenant, id string) (auth.Record, error) {
	if _, err := ulid.Parse(id); err != nil {
		// Not an id this store could have issued.
		return nil, oops.Code("RECORD_NOT_FOUND").
			With("tenant", tenant.String()).
			With("id", id).
			Wrap(auth.ErrNotFound)
	}

	row := r.db.QueryRow(ctx, `
		SELECT `+selectColumns+`
		FROM credential_records
		WHERE tenant_id = $1 AND collection = $2 AND id = $3
	`, tenant.ID, tenant.Collection, id)

	acc, err := r.scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RECORD_NOT_FOUND").
			With("tenant", tenant.String()).
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RECORD_FIND_BY_ID_FAILED").
			With("operation", "find record by id").
			With("tenant", tenant.String()).
			With("id", id).
			Wrap(err)
	}
	return acc, nil
}

// Create implements auth.RecordStore. A unique violation on the email index
// is reported as auth.ErrDuplicate.
func (r *RecordStore) Create(ctx context.Context, tenant auth.Tenant, rec auth.NewRecord) (auth.Record, error) {
	acc, err := auth.NewAccount(r.hasher, tenant, rec)
	if err != nil {
		return nil, oops.Code("RECORD_CREATE_FAILED").With("tenant", tenant.String()).Wrap(err)
	}

	profile, err := json.Marshal(acc.Profile)
	if err != nil {
		return nil, oops.Code("RECORD_CREATE_FAILED").
			With("operation", "marshal profile").
			Wrap(err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO credential_records (
			id, tenant_id, collection, email, password_hash, profile, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		acc.Identifier(),
		tenant.ID,
		tenant.Collection,
		acc.Email,
		acc.PasswordHash,
		profile,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return nil, oops.Code("RECORD_DUPLICATE").
			With("tenant", tenant.String()).
			With("email", acc.Email).
			Wrap(auth.ErrDuplicate)
	}
	if err != nil {
		return nil, oops.Code("RECORD_CREATE_FAILED").
			With("operation", "insert record").
			With("tenant", tenant.String()).
			Wrap(err)
	}
	return acc, nil
}

// Save implements auth.RecordStore. A staged password is hashed before the
// update.
func (r *RecordStore) Save(ctx context.Context, rec auth.Record) error {
	acc, ok := rec.(*auth.Account)
	if !ok {
		return oops.Code("RECORD_SAVE_FAILED").
			With("record_type", fmt.Sprintf("%T", rec)).
			Errorf("unsupported record type")
	}
	if err := acc.Seal(); err != nil {
		return oops.Code("RECORD_SAVE_FAILED").With("id", acc.Identifier()).Wrap(err)
	}
	if acc.UpdatedAt.IsZero() {
		acc.UpdatedAt = time.Now().UTC()
	}

	profile, err := json.Marshal(acc.Profile)
	if err != nil {
		return oops.Code("RECORD_SAVE_FAILED").
			With("operation", "marshal profile").
			Wrap(err)
	}

	result, err := r.db.Exec(ctx, `
		UPDATE credential_records SET
			email = $4,
			password_hash = $5,
			profile = $6,
			updated_at = $7
		WHERE tenant_id = $1 AND collection = $2 AND id = $3
	`,
		acc.Tenant.ID,
		acc.Tenant.Collection,
		acc.Identifier(),
		auth.NormalizeEmail(acc.Email),
		acc.PasswordHash,
		profile,
		acc.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("RECORD_DUPLICATE").
			With("tenant", acc.Tenant.String()).
			With("id", acc.Identifier()).
			Wrap(auth.ErrDuplicate)
	}
	if err != nil {
		return oops.Code("RECORD_SAVE_FAILED").
			With("operation", "update record").
			With("id", acc.Identifier()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("RECORD_NOT_FOUND").
			With("tenant", acc.Tenant.String()).
			With("id", acc.Identifier()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *RecordStore) scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		idStr       string
		acc         auth.Account
		profileJSON []byte
	)
	err := row.Scan(
		&idStr,
		&acc.Tenant.ID,
		&acc.Tenant.Collection,
		&acc.Email,
		&acc.PasswordHash,
		&profileJSON,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with lookup context
		}
		return nil, oops.Code("RECORD_SCAN_FAILED").With("operation", "scan record").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("RECORD_INVALID_ID").With("id", idStr).Wrap(err)
	}
	acc.ID = id

	if len(profileJSON) > 0 {
		if err := json.Unmarshal(profileJSON, &acc.Profile); err != nil {
			return nil, oops.Code("RECORD_INVALID_PROFILE").With("id", idStr).Wrap(err)
		}
	}
	return auth.RestoreAccount(r.hasher, acc), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
