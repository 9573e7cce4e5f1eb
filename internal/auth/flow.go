// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/credgate/credgate/pkg/errutil"
)

// Flow names used in logs and metrics.
const (
	FlowLogin        = "login"
	FlowRegister     = "register"
	FlowResetRequest = "reset_request"
	FlowResetConfirm = "reset_confirm"
)

// dummyPasswordHash is verified against when no record exists so a missing
// account costs the same as a wrong password.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Config carries the collaborators for one site's flows.
type Config struct {
	Tenant  Tenant
	Store   RecordStore
	Tokens  TokenService
	BaseURL string

	// Notifications is optional. Without it registration sends no email and
	// reset requests fail as MISCONFIGURED.
	Notifications *NotificationConfig

	// Replay is optional. When set, each reset token can be confirmed once.
	Replay ReplayGuard

	// Hasher is optional. When set, logins for unknown emails still run a
	// hash verification.
	Hasher PasswordHasher

	Logger *slog.Logger
}

func (c Config) tenant() Tenant {
	t := c.Tenant
	if t.Collection == "" {
		t.Collection = DefaultCollection
	}
	return t
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// base holds what every flow shares.
type base struct {
	name   string
	tenant Tenant
	store  RecordStore
	logger *slog.Logger
}

func newBase(name string, cfg Config) (base, error) {
	if cfg.Store == nil {
		return base{}, oops.Code("FLOW_CONFIG_INVALID").With("flow", name).Errorf("record store is required")
	}
	if cfg.Tenant.ID == "" {
		return base{}, oops.Code("FLOW_CONFIG_INVALID").With("flow", name).Errorf("tenant id is required")
	}
	t := cfg.tenant()
	return base{
		name:   name,
		tenant: t,
		store:  cfg.Store,
		logger: cfg.logger().With("flow", name, "tenant", t.ID, "collection", t.Collection),
	}, nil
}

// systemFault logs cause with full context and returns an error that only
// exposes the generic message.
func (b base) systemFault(ctx context.Context, code Code, cause error, attrs ...any) *Error {
	if cause == nil {
		cause = oops.Errorf("%s", code)
	}
	errutil.LogErrorContext(ctx, b.logger, "flow failed", cause, append([]any{"code", string(code)}, attrs...)...)
	return wrapError(code, cause)
}

// lookupFailure converts a store lookup error. ErrNotFound becomes the given
// caller-fault code; anything else is an internal fault.
func (b base) lookupFailure(ctx context.Context, err error, notFound Code, attrs ...any) *Error {
	if errors.Is(err, ErrNotFound) {
		return wrapError(notFound, err)
	}
	return b.systemFault(ctx, CodeInternal, err, attrs...)
}

// requireAll returns the code of the first empty value, in order.
func requireAll(checks ...requirement) *Error {
	for _, c := range checks {
		if c.value == "" {
			return newError(c.code)
		}
	}
	return nil
}

type requirement struct {
	value string
	code  Code
}
