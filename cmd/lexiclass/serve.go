// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/lexiclass/lexiclass/internal/auth"
	authpostgres "github.com/lexiclass/lexiclass/internal/auth/postgres"
	"github.com/lexiclass/lexiclass/internal/config"
	"github.com/lexiclass/lexiclass/internal/httpapi"
	"github.com/lexiclass/lexiclass/internal/observability"
	"github.com/lexiclass/lexiclass/internal/progress"
	progresspostgres "github.com/lexiclass/lexiclass/internal/progress/postgres"
	"github.com/lexiclass/lexiclass/internal/score"
	scorepostgres "github.com/lexiclass/lexiclass/internal/score/postgres"
	"github.com/lexiclass/lexiclass/internal/store"
)

// shutdownTimeout bounds draining of in-flight requests.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd(opts *rootOptions, deps *ServeDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API and, unless metrics_addr is empty, the metrics and
health check server. The database schema must already be migrated.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, deps)
		},
	}
}

// runServeWithDeps runs the server until a signal arrives, ctx is
// cancelled or a listener fails. If deps is nil, default implementations
// are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = defaultPoolFactory
	}
	if deps.APIServerFactory == nil {
		deps.APIServerFactory = defaultAPIServerFactory
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = defaultObservabilityServerFactory
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}

	logOutput := deps.LogOutput
	if logOutput == nil {
		logOutput = cmd.ErrOrStderr()
	}
	logger := newLogger(cfg, logOutput)
	slog.SetDefault(logger)

	shutdownTracing := observability.SetupTracing(serviceName, version)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("error stopping tracer provider", "error", err)
		}
	}()

	logger.Info("starting lexiclass",
		"version", version,
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.MetricsAddr,
		"log_format", cfg.Log.Format,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL, connectOptions(cfg), logger)
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	var (
		obsServer ObservabilityServer
		observer  store.OperationObserver = store.NopObserver{}
		metrics   *observability.Metrics
	)
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, pool.Ping, logger)
		metrics = obsServer.Metrics()
		if metrics != nil {
			observer = metrics
		}
	}

	router, err := buildRouter(cfg, pool, observer, metrics, logger)
	if err != nil {
		return err
	}

	if obsServer != nil {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		defer stopServer(obsServer, "observability", logger)
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
	}

	apiServer := deps.APIServerFactory(cfg.HTTP.Addr, router, logger)
	apiErrCh, err := apiServer.Start()
	if err != nil {
		return oops.With("operation", "start api server").Wrap(err)
	}
	defer stopServer(apiServer, "api", logger)
	go monitorServerErrors(ctx, cancel, apiErrCh, "api", logger)

	cmd.Println("LexiClass API listening on " + apiServer.Addr())
	logger.Info("lexiclass ready", "http_addr", apiServer.Addr())

	<-ctx.Done()
	if cause := context.Cause(ctx); !errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}
	logger.Info("shutting down")
	return nil
}

// buildRouter wires repositories, services and the HTTP router over pool.
func buildRouter(cfg *config.Config, pool store.Pool, observer store.OperationObserver, metrics *observability.Metrics, logger *slog.Logger) (http.Handler, error) {
	users := authpostgres.NewUserRepository(pool)

	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err //nolint:wrapcheck // coded by auth
	}
	validator, err := auth.NewCredentialValidatorWithLogger(users, hasher, logger)
	if err != nil {
		return nil, err //nolint:wrapcheck // coded by auth
	}
	tokens, err := auth.NewTokenIssuer([]byte(cfg.Auth.TokenSecret), cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err //nolint:wrapcheck // coded by auth
	}
	authSvc, err := auth.NewServiceWithLogger(validator, tokens, users, logger)
	if err != nil {
		return nil, err //nolint:wrapcheck // coded by auth
	}

	progressStore, err := progress.NewStore(progresspostgres.NewRepository(pool),
		progress.WithLogger(logger), progress.WithObserver(observer))
	if err != nil {
		return nil, err //nolint:wrapcheck // coded by progress
	}
	ledger, err := score.NewLedger(scorepostgres.NewRepository(pool),
		score.WithLogger(logger), score.WithObserver(observer))
	if err != nil {
		return nil, err //nolint:wrapcheck // coded by score
	}

	router, err := httpapi.NewRouter(httpapi.Deps{
		Auth:           authSvc,
		Progress:       progressStore,
		Scores:         ledger,
		Metrics:        metrics,
		Logger:         logger,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // coded by httpapi
	}
	return router, nil
}

func stopServer(s Server, name string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels ctx with the server's failure as cause. It
// exits when an error is received, the channel is closed or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelCauseFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel(oops.Code("SERVER_FAILED").With("server", serverName).Wrap(err))
		}
	case <-ctx.Done():
	}
}
