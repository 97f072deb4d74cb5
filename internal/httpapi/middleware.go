// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/lexiclass/lexiclass/internal/auth"
)

const identityKey = "lexiclass.identity"

// accessLog logs one line per request and feeds the request metrics. The
// query string and headers are never logged.
func (s *server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		if s.metrics != nil {
			s.metrics.ObserveRequest(c.Request.Method, c.FullPath(), status, elapsed)
		}

		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		}
		if identity, ok := identityFrom(c); ok {
			attrs = append(attrs, "user_id", identity.ID)
		}
		if len(c.Errors) > 0 && status < http.StatusInternalServerError {
			attrs = append(attrs, "error", c.Errors.Last().Error())
		}
		s.logger.InfoContext(c.Request.Context(), "request", attrs...)
	}
}

// requireIdentity decodes the bearer token and stores the identity on the
// context. Missing and invalid tokens are both 401.
func (s *server) requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := s.auth.Authorize(c.Request.Context(), bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// requireRole rejects identities without one of roles with 403.
func (s *server) requireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFrom(c)
		if !ok {
			s.fail(c, oops.Code(auth.CodeUnauthenticated).Wrap(auth.ErrUnauthenticated))
			return
		}
		if !identity.HasRole(roles...) {
			s.fail(c, forbidden(identity, "role not permitted"))
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func identityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := v.(auth.Identity)
	return identity, ok
}

func forbidden(identity auth.Identity, reason string) error {
	return oops.Code("HTTP_FORBIDDEN").
		With("user_id", identity.ID).
		With("role", string(identity.Role)).
		Wrapf(errForbidden, "%s", reason)
}
