// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package auth

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// ErrNotFound is returned by repositories when a requested user does not exist.
var ErrNotFound = errors.New("not found")

// Authentication failure kinds. Callers classify with errors.Is.
var (
	// ErrBadCredentials is the single externally visible login failure.
	// Unknown users, missing hashes and wrong passwords all map to it.
	ErrBadCredentials = errors.New("invalid username or password")

	// ErrStorageUnavailable means the user repository could not be queried.
	// It is retryable, unlike ErrBadCredentials.
	ErrStorageUnavailable = errors.New("credential storage unavailable")
)

// Token failure kinds.
var (
	ErrTokenMalformed        = errors.New("session token malformed")
	ErrTokenExpired          = errors.New("session token expired")
	ErrTokenSignatureInvalid = errors.New("session token signature invalid")

	// ErrUnauthenticated is what the system boundary sees for any token failure.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Error codes attached to oops errors produced by this package.
const (
	CodeBadCredentials        = "AUTH_BAD_CREDENTIALS"
	CodeStorageUnavailable    = "AUTH_STORAGE_UNAVAILABLE"
	CodeUnauthenticated       = "AUTH_UNAUTHENTICATED"
	CodeTokenMalformed        = "TOKEN_MALFORMED"
	CodeTokenExpired          = "TOKEN_EXPIRED"
	CodeTokenSignatureInvalid = "TOKEN_SIGNATURE_INVALID"
	CodeInvalidHash           = "AUTH_INVALID_HASH"
)

// badCredentials builds a fresh error on every call so no internal cause
// (missing user, bad hash) can leak through the chain.
func badCredentials() error {
	return oops.Code(CodeBadCredentials).Wrap(ErrBadCredentials)
}

func storageUnavailable(operation string, cause error) error {
	return oops.Code(CodeStorageUnavailable).
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrStorageUnavailable, cause))
}

// IsTokenFailure reports whether err is any of the token failure kinds.
func IsTokenFailure(err error) bool {
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenSignatureInvalid)
}

// IsUnauthenticated reports whether err should be presented to a client as
// "not authenticated". Token failures collapse into this outcome.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || IsTokenFailure(err)
}
