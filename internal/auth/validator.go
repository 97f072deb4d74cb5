// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lexiclass/lexiclass/pkg/errutil"
)

var tracer = otel.Tracer("lexiclass/auth")

// CredentialValidator verifies a username/password pair against the stored
// user record. It only reads the repository.
type CredentialValidator struct {
	users     UserRepository
	hasher    PasswordHasher
	dummyHash string
	logger    *slog.Logger
}

// NewCredentialValidator creates a CredentialValidator using the default logger.
func NewCredentialValidator(users UserRepository, hasher PasswordHasher) (*CredentialValidator, error) {
	return NewCredentialValidatorWithLogger(users, hasher, slog.Default())
}

// NewCredentialValidatorWithLogger creates a CredentialValidator with an explicit logger.
func NewCredentialValidatorWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*CredentialValidator, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("logger is required")
	}

	// The dummy hash is produced by the same hasher so verifying against it
	// costs the same as verifying against a real user's hash.
	seed := make([]byte, 16)
	if _, err := rand.Read(seed); err != nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").With("operation", "generate dummy hash seed").Wrap(err)
	}
	dummyHash, err := hasher.Hash(hex.EncodeToString(seed))
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").With("operation", "generate dummy hash").Wrap(err)
	}

	return &CredentialValidator{
		users:     users,
		hasher:    hasher,
		dummyHash: dummyHash,
		logger:    logger,
	}, nil
}

// Authenticate returns the Identity of the user whose stored hash matches
// password. Unknown user, missing or unreadable hash and wrong password all
// fail with ErrBadCredentials; repository failures fail with
// ErrStorageUnavailable.
func (v *CredentialValidator) Authenticate(ctx context.Context, username, password string) (_ Identity, err error) {
	ctx, span := tracer.Start(ctx, "auth.authenticate")
	defer func() {
		switch {
		case err == nil:
			span.SetAttributes(attribute.String("auth.outcome", "accepted"))
		case errors.Is(err, ErrBadCredentials):
			span.SetAttributes(attribute.String("auth.outcome", "rejected"))
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	user, lookupErr := v.users.GetByUsername(ctx, username)
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		return Identity{}, storageUnavailable("get user by username", lookupErr)
	}

	targetHash := v.dummyHash
	userUsable := lookupErr == nil && user != nil && user.PasswordHash != ""
	if userUsable {
		targetHash = user.PasswordHash
	}

	// Always verify so both paths cost one hash comparison.
	valid, verifyErr := v.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if userUsable && errutil.CodeOf(verifyErr) == CodeInvalidHash {
			v.logger.WarnContext(ctx, "stored password hash unreadable",
				"operation", "verify password",
				"user_id", user.ID,
			)
		}
		return Identity{}, badCredentials()
	}

	if !userUsable || !valid {
		return Identity{}, badCredentials()
	}

	return user.Identity(), nil
}
