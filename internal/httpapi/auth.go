// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexiclass/lexiclass/internal/auth"
	"github.com/lexiclass/lexiclass/internal/observability"
)

// loginRequest has no binding rules: a missing field is reported as bad
// credentials, not as a field error.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *server) login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}

	result, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	s.recordLogin(err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *server) recordLogin(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.RecordLogin(observability.LoginSucceeded)
	case errors.Is(err, auth.ErrBadCredentials):
		s.metrics.RecordLogin(observability.LoginRejected)
	default:
		s.metrics.RecordLogin(observability.LoginUnavailable)
	}
}

func (s *server) me(c *gin.Context) {
	identity, _ := identityFrom(c)
	current, err := s.auth.CurrentUser(c.Request.Context(), identity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}

func (s *server) listStudents(c *gin.Context) {
	students, err := s.auth.ListStudents(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}
