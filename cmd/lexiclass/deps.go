// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/lexiclass/lexiclass/internal/httpapi"
	"github.com/lexiclass/lexiclass/internal/observability"
	"github.com/lexiclass/lexiclass/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, dsn string, opts store.ConnectOptions, logger *slog.Logger) (DBPool, error)

	// APIServerFactory creates the API server around the router.
	// Default: httpapi.NewServer
	APIServerFactory func(addr string, handler http.Handler, logger *slog.Logger) Server

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// LogOutput receives log lines.
	// Default: the command's stderr
	LogOutput io.Writer
}

// MigrateDeps contains injectable dependencies for the migrate command.
type MigrateDeps struct {
	// MigratorFactory opens a migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)
}

// UserDeps contains injectable dependencies for the user commands.
type UserDeps struct {
	// PoolFactory opens the database pool the user repository runs on.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, dsn string, opts store.ConnectOptions, logger *slog.Logger) (DBPool, error)
}

// DBPool wraps the methods used from *pgxpool.Pool.
type DBPool interface {
	store.Pool
	Ping(ctx context.Context) error
	Close()
}

// Server wraps the methods used from httpapi.Server.
type Server interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Server
	Metrics() *observability.Metrics
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Status() (store.MigrationStatus, error)
	Close() error
}

func defaultPoolFactory(ctx context.Context, dsn string, opts store.ConnectOptions, logger *slog.Logger) (DBPool, error) {
	pool, err := store.Connect(ctx, dsn, opts, logger)
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded by store
	}
	return pool, nil
}

func defaultAPIServerFactory(addr string, handler http.Handler, logger *slog.Logger) Server {
	return httpapi.NewServer(addr, handler, logger)
}

func defaultObservabilityServerFactory(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
	return observability.NewServer(addr, ready, logger)
}

func defaultMigratorFactory(databaseURL string) (Migrator, error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded by store
	}
	return m, nil
}
