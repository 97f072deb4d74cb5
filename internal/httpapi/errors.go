// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	"github.com/lexiclass/lexiclass/internal/auth"
	"github.com/lexiclass/lexiclass/internal/progress"
	"github.com/lexiclass/lexiclass/internal/score"
	"github.com/lexiclass/lexiclass/internal/store"
	"github.com/lexiclass/lexiclass/pkg/errutil"
)

// Failure kinds raised by the HTTP layer itself.
var (
	errBadRequest = errors.New("bad request")
	errForbidden  = errors.New("forbidden")
	errNotFound   = errors.New("not found")
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusFor maps a failure to its HTTP status and client-facing message.
// Messages for 5xx never include the underlying cause.
func statusFor(err error) (int, string) {
	switch {
	case auth.IsUnauthenticated(err):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, auth.ErrBadCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, errNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, errBadRequest),
		errors.Is(err, progress.ErrInvalidRecord),
		errors.Is(err, score.ErrInvalidScore):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrConstraintViolation):
		return http.StatusConflict, "conflict"
	case errors.Is(err, auth.ErrStorageUnavailable),
		errors.Is(err, store.ErrConnectionFailure):
		return http.StatusServiceUnavailable, "storage unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *server) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(c.Request.Context(), s.logger, "request failed", err)
	}
	_ = c.Error(err) //nolint:errcheck // recorded for the access log only
	c.AbortWithStatusJSON(status, errorResponse{Error: msg, Code: errutil.CodeOf(err)})
}

var registerTagNames sync.Once

// useJSONFieldNames makes validation messages name fields as clients send
// them.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
}

// bindJSON decodes and validates the request body into dst.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return oops.Code("HTTP_BAD_REQUEST").Wrap(fmt.Errorf("%w: %s", errBadRequest, describeBindError(err)))
	}
	return nil
}

func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "malformed JSON body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", fe.Field(), boundWord(fe.Tag()), fe.Param()))
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func boundWord(tag string) string {
	if tag == "min" {
		return "at least"
	}
	return "at most"
}
