// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lexiclass/lexiclass/internal/auth"
	"github.com/lexiclass/lexiclass/internal/auth/memory"
	"github.com/lexiclass/lexiclass/pkg/errutil"
)

// mockUserRepository is a testify mock of auth.UserRepository.
type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

func (m *mockUserRepository) ListByRole(ctx context.Context, role auth.Role) ([]*auth.User, error) {
	args := m.Called(ctx, role)
	users, _ := args.Get(0).([]*auth.User)
	return users, args.Error(1)
}

// mockHasher is a testify mock of auth.PasswordHasher.
type mockHasher struct {
	mock.Mock
}

func (m *mockHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *mockHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// seedUsers provisions a teacher and a student with real bcrypt hashes.
func seedUsers(t *testing.T) (*memory.UserRepository, *auth.BcryptHasher) {
	t.Helper()
	repo := memory.NewUserRepository()
	hasher := newTestHasher(t)
	prov, err := auth.NewProvisioner(repo, hasher)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = prov.Create(ctx, auth.NewAccount{Username: "mr_lee", Password: "chalkboard", Role: auth.RoleTeacher, Name: "Mr Lee"})
	require.NoError(t, err)
	_, err = prov.Create(ctx, auth.NewAccount{Username: "ana_k", Password: "vocab123", Role: auth.RoleStudent, Name: "Ana K"})
	require.NoError(t, err)
	return repo, hasher
}

func TestNewCredentialValidator_NilDependencies(t *testing.T) {
	repo := memory.NewUserRepository()
	hasher := newTestHasher(t)

	tests := []struct {
		name        string
		users       auth.UserRepository
		hasher      auth.PasswordHasher
		logger      *slog.Logger
		expectError string
	}{
		{"nil users repository", nil, hasher, slog.Default(), "users repository is required"},
		{"nil password hasher", repo, nil, slog.Default(), "password hasher is required"},
		{"nil logger", repo, hasher, nil, "logger is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := auth.NewCredentialValidatorWithLogger(tt.users, tt.hasher, tt.logger)
			require.Error(t, err)
			assert.Nil(t, v)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestCredentialValidator_Authenticate(t *testing.T) {
	ctx := context.Background()
	repo, hasher := seedUsers(t)
	v, err := auth.NewCredentialValidator(repo, hasher)
	require.NoError(t, err)

	t.Run("valid student credentials", func(t *testing.T) {
		id, err := v.Authenticate(ctx, "ana_k", "vocab123")
		require.NoError(t, err)
		assert.Equal(t, "ana_k", id.Username)
		assert.Equal(t, auth.RoleStudent, id.Role)
		assert.Equal(t, "Ana K", id.Name)
		assert.NotEmpty(t, id.ID)
	})

	t.Run("valid teacher credentials", func(t *testing.T) {
		id, err := v.Authenticate(ctx, "mr_lee", "chalkboard")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleTeacher, id.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := v.Authenticate(ctx, "ana_k", "wrong")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrBadCredentials)
		errutil.AssertErrorCode(t, err, auth.CodeBadCredentials)
	})

	t.Run("username lookup is case sensitive", func(t *testing.T) {
		_, err := v.Authenticate(ctx, "ANA_K", "vocab123")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrBadCredentials)
	})

	t.Run("unknown user and wrong password are indistinguishable", func(t *testing.T) {
		_, errUnknown := v.Authenticate(ctx, "nobody", "vocab123")
		_, errWrong := v.Authenticate(ctx, "ana_k", "nope")
		require.Error(t, errUnknown)
		require.Error(t, errWrong)
		assert.Equal(t, errWrong.Error(), errUnknown.Error())
		assert.ErrorIs(t, errUnknown, auth.ErrBadCredentials)
		assert.NotErrorIs(t, errUnknown, auth.ErrNotFound)
	})

	t.Run("empty password", func(t *testing.T) {
		_, err := v.Authenticate(ctx, "ana_k", "")
		assert.ErrorIs(t, err, auth.ErrBadCredentials)
	})
}

func TestCredentialValidator_UnknownUserStillVerifies(t *testing.T) {
	ctx := context.Background()
	users := &mockUserRepository{}
	hasher := &mockHasher{}

	hasher.On("Hash", mock.AnythingOfType("string")).Return("$2a$04$dummy", nil).Once()
	v, err := auth.NewCredentialValidator(users, hasher)
	require.NoError(t, err)

	users.On("GetByUsername", ctx, "ghost").Return(nil, auth.ErrNotFound)
	hasher.On("Verify", "pw", "$2a$04$dummy").Return(false, nil).Once()

	_, err = v.Authenticate(ctx, "ghost", "pw")
	assert.ErrorIs(t, err, auth.ErrBadCredentials)
	users.AssertExpectations(t)
	hasher.AssertExpectations(t)
}

func TestCredentialValidator_MissingOrMalformedHash(t *testing.T) {
	ctx := context.Background()
	hasher := newTestHasher(t)

	tests := []struct {
		name string
		hash string
	}{
		{"missing hash", ""},
		{"malformed hash", "plaintext-not-bcrypt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mockUserRepository{}
			users.On("GetByUsername", ctx, "ana_k").Return(&auth.User{
				ID: "u-1", Username: "ana_k", PasswordHash: tt.hash, Role: auth.RoleStudent, Name: "Ana",
			}, nil)

			v, err := auth.NewCredentialValidator(users, hasher)
			require.NoError(t, err)

			_, err = v.Authenticate(ctx, "ana_k", "plaintext-not-bcrypt")
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrBadCredentials)
			assert.Contains(t, err.Error(), "invalid username or password")
		})
	}
}

func TestCredentialValidator_StorageFailure(t *testing.T) {
	ctx := context.Background()
	users := &mockUserRepository{}
	users.On("GetByUsername", ctx, "ana_k").Return(nil, errors.New("connection refused"))

	v, err := auth.NewCredentialValidator(users, newTestHasher(t))
	require.NoError(t, err)

	_, err = v.Authenticate(ctx, "ana_k", "vocab123")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrStorageUnavailable)
	assert.NotErrorIs(t, err, auth.ErrBadCredentials)
	errutil.AssertErrorCode(t, err, auth.CodeStorageUnavailable)
	errutil.AssertErrorContext(t, err, "operation", "get user by username")
}

func TestCredentialValidator_UnreadableHashWarning(t *testing.T) {
	ctx := context.Background()
	stored := &auth.User{ID: "u-1", Username: "ana_k", PasswordHash: "$2a$04$stored", Role: auth.RoleStudent, Name: "Ana"}

	tests := []struct {
		name      string
		verifyErr error
		wantWarn  bool
	}{
		{"overlong password", bcrypt.ErrPasswordTooLong, false},
		{"uncoded verify failure", errors.New("cipher failure"), false},
		{"corrupt stored hash", oops.Code(auth.CodeInvalidHash).Wrap(bcrypt.ErrHashTooShort), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			users := &mockUserRepository{}
			hasher := &mockHasher{}
			hasher.On("Hash", mock.AnythingOfType("string")).Return("$2a$04$dummy", nil).Once()
			users.On("GetByUsername", ctx, "ana_k").Return(stored, nil)
			hasher.On("Verify", "pw", "$2a$04$stored").Return(false, tt.verifyErr).Once()

			v, err := auth.NewCredentialValidatorWithLogger(users, hasher, logger)
			require.NoError(t, err)

			_, err = v.Authenticate(ctx, "ana_k", "pw")
			assert.ErrorIs(t, err, auth.ErrBadCredentials)
			if tt.wantWarn {
				assert.Contains(t, buf.String(), "stored password hash unreadable")
			} else {
				assert.NotContains(t, buf.String(), "stored password hash unreadable")
			}
			hasher.AssertExpectations(t)
		})
	}
}

func TestCredentialValidator_TeacherLoginExample(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()
	hasher := newTestHasher(t)
	prov, err := auth.NewProvisioner(repo, hasher)
	require.NoError(t, err)
	_, err = prov.Create(ctx, auth.NewAccount{Username: "Vladislav", Password: "Vladislav15", Role: auth.RoleTeacher, Name: "Vladislav"})
	require.NoError(t, err)

	v, err := auth.NewCredentialValidator(repo, hasher)
	require.NoError(t, err)

	_, refErr := v.Authenticate(ctx, "nobody", "x")
	require.Error(t, refErr)

	tests := []struct {
		name     string
		username string
		password string
		wantRole auth.Role
	}{
		{"correct password", "Vladislav", "Vladislav15", auth.RoleTeacher},
		{"wrong password", "Vladislav", "wrong", ""},
		{"unknown user", "nobody", "x", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := v.Authenticate(ctx, tt.username, tt.password)
			if tt.wantRole == "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, auth.ErrBadCredentials)
				assert.Equal(t, refErr.Error(), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Vladislav", id.Username)
			assert.Equal(t, tt.wantRole, id.Role)
			assert.NotEmpty(t, id.ID)
		})
	}
}
