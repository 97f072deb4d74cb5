// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

// Package postgres implements auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/oops"

	"github.com/lexiclass/lexiclass/internal/auth"
	"github.com/lexiclass/lexiclass/internal/store"
)

const userColumns = `id, username, password_hash, role, name, email, created_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool store.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool store.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user. A duplicate username surfaces as
// store.ErrConstraintViolation.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, role, name, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		user.ID,
		user.Username,
		user.PasswordHash,
		string(user.Role),
		user.Name,
		user.Email,
		user.CreatedAt,
	)
	if err != nil {
		return oops.With("username", user.Username).Wrap(store.WrapError("insert user", err))
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("id", id).Wrap(store.WrapError("get user by id", err))
	}
	return user, nil
}

// GetByUsername retrieves a user by exact, case-sensitive username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("username", username).Wrap(store.WrapError("get user by username", err))
	}
	return user, nil
}

// ListByRole returns all users with role ordered by name.
func (r *UserRepository) ListByRole(ctx context.Context, role auth.Role) ([]*auth.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY name, id`,
		string(role))
	if err != nil {
		return nil, oops.With("role", string(role)).Wrap(store.WrapError("list users by role", err))
	}
	defer rows.Close()

	users := make([]*auth.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, store.WrapError("scan user row", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, store.WrapError("iterate users", err)
	}
	return users, nil
}

// scanUser scans a single row into a User.
// pgx.ErrNoRows is returned unchanged for callers to map to ErrNotFound.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		id        string
		username  string
		hash      pgtype.Text
		role      string
		name      string
		email     pgtype.Text
		createdAt time.Time
	)

	if err := row.Scan(&id, &username, &hash, &role, &name, &email, &createdAt); err != nil {
		return nil, err //nolint:wrapcheck // callers add context
	}

	parsed, err := auth.ParseRole(role)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ROLE").
			With("operation", "parse user role").
			With("id", id).
			Wrap(err)
	}

	user := &auth.User{
		ID:           id,
		Username:     username,
		PasswordHash: hash.String,
		Role:         parsed,
		Name:         name,
		CreatedAt:    createdAt,
	}
	if email.Valid {
		e := email.String
		user.Email = &e
	}
	return user, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
