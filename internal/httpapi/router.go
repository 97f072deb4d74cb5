// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

// Package httpapi is the JSON API: login, progress and offline scores
// behind a bearer-token role gate.
package httpapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/lexiclass/lexiclass/internal/auth"
	"github.com/lexiclass/lexiclass/internal/observability"
	"github.com/lexiclass/lexiclass/internal/progress"
	"github.com/lexiclass/lexiclass/internal/score"
)

// Deps are the services the API is built on. Metrics is optional; a nil
// TracerProvider means the global one.
type Deps struct {
	Auth           *auth.Service
	Progress       *progress.Store
	Scores         *score.Ledger
	Metrics        *observability.Metrics
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	AllowedOrigins []string
}

type server struct {
	auth     *auth.Service
	progress *progress.Store
	scores   *score.Ledger
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewRouter builds the gin engine with every API route registered.
func NewRouter(deps Deps) (*gin.Engine, error) {
	switch {
	case deps.Auth == nil:
		return nil, oops.Code("HTTP_INVALID_CONFIG").Errorf("auth service is required")
	case deps.Progress == nil:
		return nil, oops.Code("HTTP_INVALID_CONFIG").Errorf("progress store is required")
	case deps.Scores == nil:
		return nil, oops.Code("HTTP_INVALID_CONFIG").Errorf("score ledger is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.TracerProvider == nil {
		deps.TracerProvider = otel.GetTracerProvider()
	}

	corsConfig, err := corsConfigFor(deps.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	useJSONFieldNames()

	s := &server{
		auth:     deps.Auth,
		progress: deps.Progress,
		scores:   deps.Scores,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}

	router := gin.New()
	router.Use(gin.CustomRecovery(s.recovered))
	router.Use(traceRequests(deps.TracerProvider))
	router.Use(s.accessLog())
	if corsConfig != nil {
		router.Use(cors.New(*corsConfig))
	}
	router.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "not found"})
	})

	api := router.Group("/api/v1")
	api.POST("/auth/login", s.login)

	protected := api.Group("")
	protected.Use(s.requireIdentity())
	{
		protected.GET("/auth/me", s.me)

		protected.PUT("/progress", s.putProgress)
		protected.GET("/progress", s.listProgress)
		protected.GET("/progress/:student_id/:unit_id/:round_id", s.getProgress)

		protected.GET("/scores", s.listScores)
		protected.POST("/scores", s.requireRole(auth.RoleTeacher), s.addScore)

		protected.GET("/students", s.requireRole(auth.RoleTeacher), s.listStudents)
	}

	return router, nil
}

// corsConfigFor returns nil when no origins are configured.
func corsConfigFor(origins []string) (*cors.Config, error) {
	if len(origins) == 0 {
		return nil, nil
	}
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	for _, origin := range origins {
		switch {
		case origin == "*":
			cfg.AllowAllOrigins = true
		case strings.HasPrefix(origin, "http://"), strings.HasPrefix(origin, "https://"):
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		default:
			return nil, oops.Code("HTTP_INVALID_CONFIG").
				With("origin", origin).
				Errorf("allowed origin must start with http:// or https://")
		}
	}
	if cfg.AllowAllOrigins {
		cfg.AllowOrigins = nil
	}
	return &cfg, nil
}

func (s *server) recovered(c *gin.Context, recovered any) {
	s.logger.ErrorContext(c.Request.Context(), "panic serving request",
		"method", c.Request.Method,
		"route", c.FullPath(),
		"panic", recovered,
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
