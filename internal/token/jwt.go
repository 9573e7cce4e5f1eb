// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth"
)

// MinSecretLen is the shortest accepted HMAC secret, in bytes.
const MinSecretLen = 32

// DefaultIssuer is used when Config.Issuer is empty.
const DefaultIssuer = "credgate"

// Config configures a JWTService.
type Config struct {
	// Secret is the HS256 key. At least MinSecretLen bytes.
	Secret []byte
	// Issuer is written to and required in the iss claim. Sites use distinct
	// issuers so one site's tokens are rejected by another.
	Issuer string
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// JWTService implements auth.TokenService with HS256 JWTs.
type JWTService struct {
	secret []byte
	issuer string
	clock  clockwork.Clock
	parser *jwt.Parser
}

var _ auth.TokenService = (*JWTService)(nil)

// NewJWTService validates cfg and builds the service.
func NewJWTService(cfg Config) (*JWTService, error) {
	if len(cfg.Secret) < MinSecretLen {
		return nil, oops.Code("TOKEN_SECRET_INVALID").
			With("min_length", MinSecretLen).
			Errorf("token secret must be at least %d bytes", MinSecretLen)
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &JWTService{
		secret: secret,
		issuer: cfg.Issuer,
		clock:  cfg.Clock,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithTimeFunc(cfg.Clock.Now),
		),
	}, nil
}

// Issue implements auth.TokenService. TokenID and ExpiresAt in payload are
// ignored; a fresh jti is generated.
func (s *JWTService) Issue(expiresIn time.Duration, payload auth.TokenPayload) (string, error) {
	if expiresIn <= 0 {
		return "", oops.Code("TOKEN_EXPIRY_INVALID").
			With("expires_in", expiresIn.String()).
			Errorf("token lifetime must be positive")
	}
	if payload.SubjectID == "" {
		return "", oops.Code("TOKEN_SUBJECT_REQUIRED").Errorf("token subject is required")
	}

	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   payload.SubjectID,
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("issuer", s.issuer).Wrap(err)
	}
	return signed, nil
}

// Verify implements auth.TokenService.
func (s *JWTService) Verify(token string) bool {
	_, err := s.parse(token)
	return err == nil
}

// Decode implements auth.TokenService.
func (s *JWTService) Decode(token string) (auth.TokenPayload, error) {
	claims, err := s.parse(token)
	if err != nil {
		return auth.TokenPayload{}, err
	}

	payload := auth.TokenPayload{SubjectID: claims.Subject, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		payload.ExpiresAt = claims.ExpiresAt.Time
	}
	return payload, nil
}

func (s *JWTService) parse(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, oops.Code("TOKEN_MALFORMED").Errorf("token is empty")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, oops.Code("TOKEN_REJECTED").With("issuer", s.issuer).Wrap(err)
	}
	return claims, nil
}
