// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	MinTokenSecretBytes = 32
	DefaultTokenTTL     = 24 * time.Hour
)

// SessionToken is a signed, self-contained credential handed to a client
// after a successful login.
type SessionToken struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// tokenClaims is the complete token payload. Only exp is taken from the
// registered claims; RegisteredClaims fields are omitempty so nothing else
// is emitted.
type tokenClaims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithClock replaces the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

// TokenIssuer issues and decodes HS256 session tokens. It holds no mutable
// state and is safe for concurrent use.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenIssuer creates a TokenIssuer signing with secret. Tokens expire
// ttl after issue.
func NewTokenIssuer(secret []byte, ttl time.Duration, opts ...TokenOption) (*TokenIssuer, error) {
	if len(secret) < MinTokenSecretBytes {
		return nil, oops.Code("AUTH_INVALID_CONFIG").
			With("min_bytes", MinTokenSecretBytes).
			Errorf("token secret too short")
	}
	if ttl <= 0 {
		return nil, oops.Code("AUTH_INVALID_CONFIG").
			With("ttl", ttl.String()).
			Errorf("token ttl must be positive")
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	t := &TokenIssuer{
		secret: key,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
		jwt.WithStrictDecoding(),
	)
	return t, nil
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue signs a token for identity. Only ID, Username and Role are embedded.
func (t *TokenIssuer) Issue(identity Identity) (SessionToken, error) {
	if identity.ID == "" {
		return SessionToken{}, oops.Code("AUTH_INVALID_IDENTITY").Errorf("identity id cannot be empty")
	}
	if !identity.Role.Valid() {
		return SessionToken{}, oops.Code("AUTH_INVALID_IDENTITY").
			With("role", string(identity.Role)).
			Errorf("identity role is not valid")
	}

	// NumericDate has second precision; report the expiry the client will see.
	expiresAt := t.now().Add(t.ttl).UTC().Truncate(time.Second)

	claims := tokenClaims{
		UserID:   identity.ID,
		Username: identity.Username,
		Role:     string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return SessionToken{}, oops.Code("AUTH_TOKEN_SIGN_FAILED").Wrap(err)
	}

	return SessionToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Decode verifies value and returns the embedded identity. Name is not
// carried by the token and is always empty.
func (t *TokenIssuer) Decode(value string) (Identity, error) {
	var claims tokenClaims
	_, err := t.parser.ParseWithClaims(value, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		return Identity{}, classifyTokenError(err)
	}

	role, err := ParseRole(claims.Role)
	if err != nil {
		return Identity{}, tokenFailure(CodeTokenMalformed, ErrTokenMalformed, err)
	}
	if claims.UserID == "" || claims.Username == "" {
		return Identity{}, oops.Code(CodeTokenMalformed).Wrap(ErrTokenMalformed)
	}

	return Identity{
		ID:       claims.UserID,
		Username: claims.Username,
		Role:     role,
	}, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return tokenFailure(CodeTokenExpired, ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return tokenFailure(CodeTokenSignatureInvalid, ErrTokenSignatureInvalid, err)
	default:
		return tokenFailure(CodeTokenMalformed, ErrTokenMalformed, err)
	}
}

func tokenFailure(code string, kind, cause error) error {
	return oops.Code(code).Wrap(fmt.Errorf("%w: %w", kind, cause))
}
