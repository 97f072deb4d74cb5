// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

// Package memory provides an in-process UserRepository for tests and local
// development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/lexiclass/lexiclass/internal/auth"
	"github.com/lexiclass/lexiclass/internal/store"
)

// UserRepository stores users in a map. Records are copied in and out so
// callers never share memory with the store.
type UserRepository struct {
	mu    sync.RWMutex
	byID  map[string]*auth.User
	names map[string]string
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:  make(map[string]*auth.User),
		names: make(map[string]string),
	}
}

// Create stores a copy of user. Usernames and IDs must be unique.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[user.ID]; ok {
		return oops.Code(store.CodeConstraintViolation).With("user_id", user.ID).Wrapf(store.ErrConstraintViolation, "user id already exists")
	}
	if _, ok := r.names[user.Username]; ok {
		return oops.Code(store.CodeConstraintViolation).With("username", user.Username).Wrapf(store.ErrConstraintViolation, "username already exists")
	}
	r.byID[user.ID] = cloneUser(user)
	r.names[user.Username] = user.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return cloneUser(u), nil
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.names[username]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return cloneUser(r.byID[id]), nil
}

// ListByRole returns users with role ordered by name, then ID.
func (r *UserRepository) ListByRole(_ context.Context, role auth.Role) ([]*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*auth.User, 0)
	for _, u := range r.byID {
		if u.Role == role {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func cloneUser(u *auth.User) *auth.User {
	c := *u
	if u.Email != nil {
		e := *u.Email
		c.Email = &e
	}
	return &c
}
