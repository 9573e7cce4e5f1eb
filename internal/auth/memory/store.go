// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package memory provides an in-process RecordStore.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth"
)

// Store keeps accounts in memory. Uniqueness of (tenant, email) is enforced
// under the write lock, so concurrent creates for one email yield exactly one
// success. Callers always receive copies.
type Store struct {
	hasher auth.PasswordHasher

	mu      sync.RWMutex
	byID    map[auth.Tenant]map[string]*auth.Account
	byEmail map[auth.Tenant]map[string]string
}

var _ auth.RecordStore = (*Store)(nil)

// NewStore creates an empty store that hashes with hasher.
func NewStore(hasher auth.PasswordHasher) *Store {
	return &Store{
		hasher:  hasher,
		byID:    make(map[auth.Tenant]map[string]*auth.Account),
		byEmail: make(map[auth.Tenant]map[string]string),
	}
}

// FindByEmail implements auth.RecordStore.
func (s *Store) FindByEmail(_ context.Context, tenant auth.Tenant, email string) (auth.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[tenant][auth.NormalizeEmail(email)]
	if !ok {
		return nil, oops.Code("RECORD_NOT_FOUND").
			With("tenant", tenant.String()).
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	return s.byID[tenant][id].Clone(), nil
}

// FindByID implements auth.RecordStore.
func (s *Store) FindByID(_ context.Context, tenant auth.Tenant, id string) (auth.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.byID[tenant][id]
	if !ok {
		return nil, oops.Code("RECORD_NOT_FOUND").
			With("tenant", tenant.String()).
			With("id", id).
			Wrap(auth.ErrNotFound)
	}
	return acc.Clone(), nil
}

// Create implements auth.RecordStore.
func (s *Store) Create(_ context.Context, tenant auth.Tenant, rec auth.NewRecord) (auth.Record, error) {
	// Hash before taking the lock.
	acc, err := auth.NewAccount(s.hasher, tenant, rec)
	if err != nil {
		return nil, oops.Code("RECORD_CREATE_FAILED").With("tenant", tenant.String()).Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[tenant][acc.Email]; taken {
		return nil, oops.Code("RECORD_DUPLICATE").
			With("tenant", tenant.String()).
			With("email", acc.Email).
			Wrap(auth.ErrDuplicate)
	}
	if s.byID[tenant] == nil {
		s.byID[tenant] = make(map[string]*auth.Account)
		s.byEmail[tenant] = make(map[string]string)
	}
	s.byID[tenant][acc.Identifier()] = acc
	s.byEmail[tenant][acc.Email] = acc.Identifier()

	return acc.Clone(), nil
}

// Save implements auth.RecordStore. Only *auth.Account records from this
// store are accepted.
func (s *Store) Save(_ context.Context, rec auth.Record) error {
	acc, ok := rec.(*auth.Account)
	if !ok {
		return oops.Code("RECORD_SAVE_FAILED").
			With("record_type", fmt.Sprintf("%T", rec)).
			Errorf("unsupported record type")
	}

	if err := acc.Seal(); err != nil {
		return oops.Code("RECORD_SAVE_FAILED").With("id", acc.Identifier()).Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := acc.Clone()
	updated.Email = auth.NormalizeEmail(updated.Email)
	current, ok := s.byID[acc.Tenant][acc.Identifier()]
	if !ok {
		return oops.Code("RECORD_NOT_FOUND").
			With("tenant", acc.Tenant.String()).
			With("id", acc.Identifier()).
			Wrap(auth.ErrNotFound)
	}
	if current.Email != updated.Email {
		if _, taken := s.byEmail[acc.Tenant][updated.Email]; taken {
			return oops.Code("RECORD_DUPLICATE").
				With("tenant", acc.Tenant.String()).
				With("email", updated.Email).
				Wrap(auth.ErrDuplicate)
		}
		delete(s.byEmail[acc.Tenant], current.Email)
		s.byEmail[acc.Tenant][updated.Email] = updated.Identifier()
	}
	s.byID[acc.Tenant][acc.Identifier()] = updated
	return nil
}

// Len returns the number of records held for tenant.
func (s *Store) Len(tenant auth.Tenant) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID[tenant])
}
