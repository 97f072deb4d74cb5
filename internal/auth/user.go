// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Role is the platform role of a user.
type Role string

// Known roles.
const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// ParseRole converts a stored or claimed role string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", oops.Code("AUTH_INVALID_ROLE").With("role", s).Errorf("unknown role %q", s)
	}
	return r, nil
}

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// User is a persisted account. PasswordHash never leaves this package's
// callers through Identity.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	Name         string
	Email        *string
	CreatedAt    time.Time
}

// Identity is the public-safe projection of a User.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Name     string `json:"name"`
}

// Identity projects the user without any credential material.
func (u *User) Identity() Identity {
	return Identity{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		Name:     u.Name,
	}
}

// HasRole reports whether the identity carries one of roles.
func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// NewUser creates a validated User ready to be stored.
// Email is optional and may be nil.
func NewUser(id, username, passwordHash string, role Role, name string, email *string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, oops.Code("AUTH_INVALID_USER_ID").Errorf("user ID cannot be empty")
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, oops.Code("AUTH_INVALID_PASSWORD").Errorf("password hash cannot be empty")
	}
	if !role.Valid() {
		return nil, oops.Code("AUTH_INVALID_ROLE").With("role", string(role)).Errorf("unknown role %q", role)
	}
	if strings.TrimSpace(name) == "" {
		return nil, oops.Code("AUTH_INVALID_NAME").Errorf("display name cannot be empty")
	}
	if email != nil && strings.TrimSpace(*email) == "" {
		email = nil
	}

	return &User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		Name:         name,
		Email:        email,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	// Returns ErrNotFound if no user has the given ID.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByUsername retrieves a user by exact, case-sensitive username.
	// Returns ErrNotFound if no user has the given username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// ListByRole returns all users with the given role ordered by name.
	ListByRole(ctx context.Context, role Role) ([]*User, error)
}
