// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"context"
	"fmt"

	"github.com/samber/oops"
)

// LoginInput is a submitted credential pair.
type LoginInput struct {
	Email    string
	Password string
}

// LoginFlow checks a credential pair against a stored record.
type LoginFlow struct {
	base
	hasher PasswordHasher
}

// NewLoginFlow creates a LoginFlow. cfg.Store and cfg.Tenant.ID are required.
func NewLoginFlow(cfg Config) (*LoginFlow, error) {
	b, err := newBase(FlowLogin, cfg)
	if err != nil {
		return nil, err
	}
	return &LoginFlow{base: b, hasher: cfg.Hasher}, nil
}

// Execute returns the record id when the password matches.
//
// Unknown emails and wrong passwords both fail with INVALID_CREDENTIALS.
// A stored record that cannot verify passwords fails with INTEGRITY_ERROR.
func (f *LoginFlow) Execute(ctx context.Context, in LoginInput) (string, error) {
	email := NormalizeEmail(in.Email)
	if err := requireAll(
		requirement{email, CodeEmailRequired},
		requirement{in.Password, CodePasswordRequired},
	); err != nil {
		return "", err
	}

	rec, err := f.store.FindByEmail(ctx, f.tenant, email)
	if err != nil {
		ferr := f.lookupFailure(ctx, err, CodeInvalidCredentials)
		if ferr.Code == CodeInvalidCredentials {
			f.burnHash(in.Password)
		}
		return "", ferr
	}

	cred, ok := rec.(CredentialRecord)
	if !ok {
		return "", f.systemFault(ctx, CodeIntegrity,
			oops.Code("RECORD_NOT_CREDENTIAL").
				With("record_type", fmt.Sprintf("%T", rec)).
				Errorf("record type does not implement password verification"),
			"record_id", rec.Identifier())
	}

	if !cred.VerifyPassword(in.Password) {
		f.logger.DebugContext(ctx, "login rejected", "record_id", rec.Identifier())
		return "", newError(CodeInvalidCredentials)
	}

	return rec.Identifier(), nil
}

func (f *LoginFlow) burnHash(password string) {
	if f.hasher == nil {
		return
	}
	//nolint:errcheck // result is discarded; only the elapsed time matters
	f.hasher.Verify(password, dummyPasswordHash)
}
