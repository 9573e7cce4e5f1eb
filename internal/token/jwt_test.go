// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/token"
	"github.com/credgate/credgate/pkg/errutil"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newService(t *testing.T, issuer string) (*token.JWTService, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, err := token.NewJWTService(token.Config{Secret: testSecret, Issuer: issuer, Clock: clock})
	require.NoError(t, err)
	return svc, clock
}

func TestNewJWTService_RejectsShortSecret(t *testing.T) {
	_, err := token.NewJWTService(token.Config{Secret: []byte("short")})
	errutil.AssertErrorCode(t, err, "TOKEN_SECRET_INVALID")
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc, clock := newService(t, "credgate/default")

	tok, err := svc.Issue(time.Minute, auth.TokenPayload{SubjectID: "rec-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(tok, "."))

	require.True(t, svc.Verify(tok))
	payload, err := svc.Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", payload.SubjectID)
	assert.NotEmpty(t, payload.TokenID)
	assert.True(t, payload.ExpiresAt.Equal(clock.Now().Add(time.Minute)))
}

func TestJWTService_TokenIDsAreUnique(t *testing.T) {
	svc, _ := newService(t, "")
	a, err := svc.Issue(time.Minute, auth.TokenPayload{SubjectID: "rec-1"})
	require.NoError(t, err)
	b, err := svc.Issue(time.Minute, auth.TokenPayload{SubjectID: "rec-1"})
	require.NoError(t, err)

	pa, err := svc.Decode(a)
	require.NoError(t, err)
	pb, err := svc.Decode(b)
	require.NoError(t, err)
	assert.NotEqual(t, pa.TokenID, pb.TokenID)
}

func TestJWTService_Expiry(t *testing.T) {
	svc, clock := newService(t, "")
	tok, err := svc.Issue(time.Minute, auth.TokenPayload{SubjectID: "rec-1"})
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	assert.True(t, svc.Verify(tok), "valid just before expiry")

	clock.Advance(2 * time.Second)
	assert.False(t, svc.Verify(tok), "invalid after expiry")

	_, err = svc.Decode(tok)
	errutil.AssertErrorCode(t, err, "TOKEN_REJECTED")
}

func TestJWTService_VerifyIsMonotonicInTime(t *testing.T) {
	svc, clock := newService(t, "")
	tok, err := svc.Issue(time.Minute, auth.TokenPayload{SubjectID: "rec-1"})
	require.NoError(t, err)

	expired := false
	for range 10 {
		clock.Advance(10 * time.Second)
		ok := svc.Verify(tok)
		if expired {
			require.False(t, ok, "a token never becomes valid again")
		}
		expired = !ok
	}
	assert.True(t, expired)
}

func TestJWTService_RejectsForeignTokens(t *testing.T) {
	siteA, _ := newService(t, "credgate/a")
	siteB, _ := newService(t, "credgate/b")

	tok, err := siteA.Issue(time.Minute, auth.TokenPayload{SubjectID: "rec-1"})
	require.NoError(t, err)
	assert.False(t, siteB.Verify(tok), "issuer mismatch")

	other, err := token.NewJWTService(token.Config{
		Secret: []byte("ffffffffffffffffffffffffffffffff"),
		Issuer: "credgate/a",
	})
	require.NoError(t, err)
	assert.False(t, other.Verify(tok), "signature mismatch")
}

func TestJWTService_RejectsMalformedAndUnsignedTokens(t *testing.T) {
	svc, _ := newService(t, "")

	for _, tok := range []string{"", "not-a-token", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.e30."} {
		assert.False(t, svc.Verify(tok), "token %q", tok)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "rec-1",
		Issuer:    token.DefaultIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.False(t, svc.Verify(unsigned))
}

func TestJWTService_RequiresExpiry(t *testing.T) {
	svc, _ := newService(t, "")
	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "rec-1",
		Issuer:  token.DefaultIssuer,
	})
	signed, err := noExp.SignedString(testSecret)
	require.NoError(t, err)
	assert.False(t, svc.Verify(signed))
}

func TestJWTService_IssueValidation(t *testing.T) {
	svc, _ := newService(t, "")

	_, err := svc.Issue(0, auth.TokenPayload{SubjectID: "rec-1"})
	errutil.AssertErrorCode(t, err, "TOKEN_EXPIRY_INVALID")

	_, err = svc.Issue(time.Minute, auth.TokenPayload{})
	errutil.AssertErrorCode(t, err, "TOKEN_SUBJECT_REQUIRED")
}
