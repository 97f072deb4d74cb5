// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// Storage failure kinds. Callers classify with errors.Is.
var (
	ErrConnectionFailure   = errors.New("storage connection failure")
	ErrConstraintViolation = errors.New("storage constraint violation")
	ErrUnknown             = errors.New("storage failure")
)

// Error codes attached by WrapError.
const (
	CodeConnectionFailure   = "STORAGE_CONNECTION_FAILURE"
	CodeConstraintViolation = "STORAGE_CONSTRAINT_VIOLATION"
	CodeUnknown             = "STORAGE_UNKNOWN"
)

// Classify maps a driver error to one of the storage failure kinds.
func Classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
			return ErrConstraintViolation
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgerrcode.IsOperatorIntervention(pgErr.Code),
			pgerrcode.IsInsufficientResources(pgErr.Code):
			return ErrConnectionFailure
		default:
			return ErrUnknown
		}
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connectErr),
		errors.As(err, &netErr),
		pgconn.Timeout(err),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.ErrUnexpectedEOF):
		return ErrConnectionFailure
	}
	return ErrUnknown
}

// WrapError classifies err and wraps it with a storage code and the
// operation name. It returns nil for a nil error.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	kind := Classify(err)
	return oops.Code(codeFor(kind)).
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", kind, err))
}

// IsRetryable reports whether err is a transient connection failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnectionFailure)
}

func codeFor(kind error) string {
	switch kind {
	case ErrConnectionFailure:
		return CodeConnectionFailure
	case ErrConstraintViolation:
		return CodeConstraintViolation
	default:
		return CodeUnknown
	}
}
