// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

// Package store provides the PostgreSQL connection lifecycle, schema
// migrations and storage error classification shared by the repositories.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool is the subset of *pgxpool.Pool the repositories use. It is satisfied
// by pgxmock.PgxPoolIface in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OperationObserver receives the outcome of every store operation.
type OperationObserver interface {
	ObserveOperation(component, operation string, err error)
}

// NopObserver discards observations.
type NopObserver struct{}

// ObserveOperation implements OperationObserver.
func (NopObserver) ObserveOperation(string, string, error) {}
