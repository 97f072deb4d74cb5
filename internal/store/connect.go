// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ConnectOptions tunes pool creation.
type ConnectOptions struct {
	MaxConns       int32
	ConnectRetries uint64
	RetryBase      time.Duration
}

// DefaultConnectOptions returns the options used when none are configured.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		MaxConns:       10,
		ConnectRetries: 5,
		RetryBase:      200 * time.Millisecond,
	}
}

// Connect opens a pgx pool and pings it, retrying transient connection
// failures with exponential backoff. The caller owns the returned pool and
// must Close it.
func Connect(ctx context.Context, dsn string, opts ConnectOptions, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("STORAGE_INVALID_DSN").With("operation", "parse database url").Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = DefaultConnectOptions().RetryBase
	}

	backoff := retry.WithMaxRetries(opts.ConnectRetries, retry.NewExponential(opts.RetryBase))

	var pool *pgxpool.Pool
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return classifyConnect(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			logger.WarnContext(ctx, "database ping failed",
				"attempt", attempt,
				"error", err.Error(),
			)
			return classifyConnect(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, WrapError("connect", err)
	}

	logger.InfoContext(ctx, "database connected",
		"max_conns", cfg.MaxConns,
		"attempts", attempt,
	)
	return pool, nil
}

func classifyConnect(err error) error {
	if Classify(err) == ErrConnectionFailure {
		return retry.RetryableError(err)
	}
	return err
}
