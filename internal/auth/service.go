// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/lexiclass/lexiclass/pkg/errutil"
)

// LoginResult is returned to a client after a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Identity  Identity  `json:"identity"`
}

// Service provides authentication operations.
type Service struct {
	validator *CredentialValidator
	tokens    *TokenIssuer
	users     UserRepository
	logger    *slog.Logger
}

// NewService creates a new Service using the default logger.
func NewService(validator *CredentialValidator, tokens *TokenIssuer, users UserRepository) (*Service, error) {
	return NewServiceWithLogger(validator, tokens, users, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(validator *CredentialValidator, tokens *TokenIssuer, users UserRepository, logger *slog.Logger) (*Service, error) {
	if validator == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("credential validator is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("token issuer is required")
	}
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("users repository is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("logger is required")
	}
	return &Service{
		validator: validator,
		tokens:    tokens,
		users:     users,
		logger:    logger,
	}, nil
}

// Login verifies credentials and issues a session token.
// Leading and trailing whitespace in the password is ignored. A missing
// username or password fails like any other bad credential.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		s.logger.InfoContext(ctx, "login rejected", "username", username)
		return LoginResult{}, badCredentials()
	}

	identity, err := s.validator.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			errutil.LogErrorContext(ctx, s.logger, "login unavailable", err)
		} else {
			s.logger.InfoContext(ctx, "login rejected", "username", username)
		}
		return LoginResult{}, err
	}

	token, err := s.tokens.Issue(identity)
	if err != nil {
		return LoginResult{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue session token").
			With("user_id", identity.ID).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "login succeeded", "user_id", identity.ID, "role", string(identity.Role))
	return LoginResult{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		Identity:  identity,
	}, nil
}

// Authorize decodes a bearer token. Every token failure is reported as
// ErrUnauthenticated; the specific kind stays in the chain for logs.
func (s *Service) Authorize(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, oops.Code(CodeUnauthenticated).Wrap(ErrUnauthenticated)
	}
	identity, err := s.tokens.Decode(token)
	if err != nil {
		s.logger.DebugContext(ctx, "token rejected", "error", err.Error())
		return Identity{}, oops.Code(CodeUnauthenticated).Wrap(errors.Join(ErrUnauthenticated, err))
	}
	return identity, nil
}

// CurrentUser resolves a decoded identity back to the stored user so the
// display name is available.
func (s *Service) CurrentUser(ctx context.Context, identity Identity) (Identity, error) {
	user, err := s.users.GetByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, oops.Code(CodeUnauthenticated).
				With("user_id", identity.ID).
				Wrap(ErrUnauthenticated)
		}
		return Identity{}, storageUnavailable("get user by id", err)
	}
	return user.Identity(), nil
}

// ListStudents returns the identities of every student account.
func (s *Service) ListStudents(ctx context.Context) ([]Identity, error) {
	users, err := s.users.ListByRole(ctx, RoleStudent)
	if err != nil {
		return nil, storageUnavailable("list students", err)
	}
	out := make([]Identity, 0, len(users))
	for _, u := range users {
		out = append(out, u.Identity())
	}
	return out, nil
}
