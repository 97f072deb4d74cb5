// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package auth

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// NewAccount is the input for provisioning a user.
type NewAccount struct {
	Username string
	Password string
	Role     Role
	Name     string
	Email    string
}

// Provisioner creates user accounts. It is used by the CLI, not by the
// login path.
type Provisioner struct {
	users  UserRepository
	hasher PasswordHasher
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(users UserRepository, hasher PasswordHasher) (*Provisioner, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	return &Provisioner{users: users, hasher: hasher}, nil
}

// Create hashes the password and stores a new user with a fresh ULID.
func (p *Provisioner) Create(ctx context.Context, account NewAccount) (*User, error) {
	if err := ValidateUsername(account.Username); err != nil {
		return nil, err
	}

	hash, err := p.hasher.Hash(strings.TrimSpace(account.Password))
	if err != nil {
		return nil, oops.Code("AUTH_PROVISION_FAILED").
			With("operation", "hash password").
			With("username", account.Username).
			Wrap(err)
	}

	var email *string
	if account.Email != "" {
		e := account.Email
		email = &e
	}

	user, err := NewUser(ulid.Make().String(), account.Username, hash, account.Role, account.Name, email)
	if err != nil {
		return nil, err
	}

	if err := p.users.Create(ctx, user); err != nil {
		return nil, oops.Code("AUTH_PROVISION_FAILED").
			With("operation", "create user").
			With("username", account.Username).
			Wrap(err)
	}
	return user, nil
}
