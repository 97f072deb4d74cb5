// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/lexiclass/lexiclass/internal/auth"
	"github.com/lexiclass/lexiclass/internal/logging"
)

// logEntry represents a parsed JSON log entry.
type logEntry struct {
	Level    string `json:"level"`
	Msg      string `json:"msg"`
	Username string `json:"username"`
	UserID   string `json:"user_id"`
	Code     string `json:"code"`
}

func parseLogLines(t *testing.T, buf *bytes.Buffer) []logEntry {
	t.Helper()
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e logEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e), "line: %s", line)
		entries = append(entries, e)
	}
	return entries
}

func TestService_Login_NeverLogsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := newServiceFixture(t, logger)
	ctx := context.Background()

	stored, err := f.users.GetByUsername(ctx, "ana_k")
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, "ana_k", "vocab123")
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "ana_k", "wrong-secret-pw")
	require.Error(t, err)
	_, err = f.svc.Authorize(ctx, res.Token + "tampered")
	require.Error(t, err)

	out := buf.String()
	require.NotEmpty(t, out)
	assert.NotContains(t, out, "vocab123")
	assert.NotContains(t, out, "wrong-secret-pw")
	assert.NotContains(t, out, stored.PasswordHash)
	assert.NotContains(t, out, res.Token)
}

func TestService_Login_LogsOutcome(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	f := newServiceFixture(t, logger)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "ana_k", "nope")
	require.Error(t, err)
	res, err := f.svc.Login(ctx, "ana_k", "vocab123")
	require.NoError(t, err)

	entries := parseLogLines(t, &buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "login rejected", entries[0].Msg)
	assert.Equal(t, "ana_k", entries[0].Username)

	assert.Equal(t, "INFO", entries[1].Level)
	assert.Equal(t, "login succeeded", entries[1].Msg)
	assert.Equal(t, res.Identity.ID, entries[1].UserID)
}

func TestService_Login_LogsStorageFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := context.Background()

	users := &mockUserRepository{}
	users.On("GetByUsername", ctx, "ana_k").Return(nil, errors.New("database connection lost"))

	validator, err := auth.NewCredentialValidatorWithLogger(users, newTestHasher(t), logger)
	require.NoError(t, err)
	svc, err := auth.NewServiceWithLogger(validator, newTestIssuer(t, newFakeClock()), users, logger)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ana_k", "vocab123")
	require.Error(t, err)

	entries := parseLogLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0].Level)
	assert.Equal(t, "login unavailable", entries[0].Msg)
	assert.Equal(t, auth.CodeStorageUnavailable, entries[0].Code)
}

func TestService_Authorize_LogsWithRequestTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup(logging.Options{Service: "lexiclass", Level: slog.LevelDebug}, &buf)
	f := newServiceFixture(t, logger)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "request")
	defer span.End()

	_, err := f.svc.Authorize(ctx, "not-a-token")
	require.Error(t, err)

	var rejected map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "token rejected" {
			rejected = entry
		}
	}
	require.NotNil(t, rejected, "logs: %s", buf.String())
	assert.Equal(t, "DEBUG", rejected["level"])
	assert.Equal(t, span.SpanContext().TraceID().String(), rejected["trace_id"])
}
