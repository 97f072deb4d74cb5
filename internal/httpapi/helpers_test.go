// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lexiclass/lexiclass/internal/auth"
	authmemory "github.com/lexiclass/lexiclass/internal/auth/memory"
	"github.com/lexiclass/lexiclass/internal/httpapi"
	"github.com/lexiclass/lexiclass/internal/observability"
	"github.com/lexiclass/lexiclass/internal/progress"
	progressmemory "github.com/lexiclass/lexiclass/internal/progress/memory"
	"github.com/lexiclass/lexiclass/internal/score"
	scorememory "github.com/lexiclass/lexiclass/internal/score/memory"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// fixture is a router over in-memory repositories with one teacher and
// two students provisioned.
type fixture struct {
	router  *gin.Engine
	metrics *observability.Metrics

	teacher auth.Identity
	student auth.Identity
	other   auth.Identity

	teacherToken string
	studentToken string
}

// newFixture builds the fixture; opts adjust the router dependencies.
func newFixture(t *testing.T, opts ...func(*httpapi.Deps)) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := authmemory.NewUserRepository()
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	prov, err := auth.NewProvisioner(users, hasher)
	require.NoError(t, err)

	teacher, err := prov.Create(ctx, auth.NewAccount{Username: "mr_lee", Password: "chalkboard", Role: auth.RoleTeacher, Name: "Mr Lee"})
	require.NoError(t, err)
	student, err := prov.Create(ctx, auth.NewAccount{Username: "ana_k", Password: "vocab123", Role: auth.RoleStudent, Name: "Ana K"})
	require.NoError(t, err)
	other, err := prov.Create(ctx, auth.NewAccount{Username: "ben_o", Password: "flashcards", Role: auth.RoleStudent, Name: "Ben O"})
	require.NoError(t, err)

	validator, err := auth.NewCredentialValidatorWithLogger(users, hasher, logger)
	require.NoError(t, err)
	tokens, err := auth.NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	authSvc, err := auth.NewServiceWithLogger(validator, tokens, users, logger)
	require.NoError(t, err)

	metrics := observability.NewMetrics(prometheus.NewRegistry())

	progressStore, err := progress.NewStore(progressmemory.NewRepository(),
		progress.WithLogger(logger), progress.WithObserver(metrics))
	require.NoError(t, err)
	ledger, err := score.NewLedger(scorememory.NewRepository(),
		score.WithLogger(logger), score.WithObserver(metrics))
	require.NoError(t, err)

	deps := httpapi.Deps{
		Auth:           authSvc,
		Progress:       progressStore,
		Scores:         ledger,
		Metrics:        metrics,
		Logger:         logger,
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	router, err := httpapi.NewRouter(deps)
	require.NoError(t, err)

	teacherToken, err := tokens.Issue(teacher.Identity())
	require.NoError(t, err)
	studentToken, err := tokens.Issue(student.Identity())
	require.NoError(t, err)

	return &fixture{
		router:       router,
		metrics:      metrics,
		teacher:      teacher.Identity(),
		student:      student.Identity(),
		other:        other.Identity(),
		teacherToken: teacherToken.Value,
		studentToken: studentToken.Value,
	}
}

// do sends a request with an optional JSON body and bearer token.
func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, "body: %s", rec.Body.String())
}

func newRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

func serve(f *fixture, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}
