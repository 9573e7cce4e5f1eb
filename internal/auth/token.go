// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"context"
	"time"
)

// DefaultResetLinkExpiry is the reset token lifetime when a site sets none.
const DefaultResetLinkExpiry = 10 * time.Minute

// TokenPayload is the logical content of a reset token.
type TokenPayload struct {
	// SubjectID is the identifier of the record the token resets.
	SubjectID string
	// TokenID uniquely identifies one issued token. Set by the TokenService.
	TokenID string
	// ExpiresAt is set by the TokenService.
	ExpiresAt time.Time
}

// TokenService issues and checks signed, time-boxed tokens.
type TokenService interface {
	// Issue signs payload with the given lifetime.
	Issue(expiresIn time.Duration, payload TokenPayload) (string, error)

	// Verify reports whether token has a valid signature and has not expired.
	Verify(token string) bool

	// Decode returns the payload of a verified token.
	Decode(token string) (TokenPayload, error)
}

// ReplayGuard makes reset tokens single-use. Consume returns true the first
// time a token id is seen and false afterwards.
type ReplayGuard interface {
	Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
}
