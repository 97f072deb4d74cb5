// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

// Package memory provides an in-process score.Repository.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/lexiclass/lexiclass/internal/score"
	"github.com/lexiclass/lexiclass/internal/store"
)

// Repository is an append-only slice guarded by a RWMutex.
type Repository struct {
	mu      sync.RWMutex
	entries []score.OfflineTestScore
	ids     map[string]struct{}
}

var _ score.Repository = (*Repository)(nil)

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{ids: make(map[string]struct{})}
}

// Insert implements score.Repository. A reused id is a constraint violation,
// as with the primary key in PostgreSQL.
func (r *Repository) Insert(_ context.Context, entry score.OfflineTestScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := entry.ID.String()
	if _, dup := r.ids[id]; dup {
		return oops.Code(store.CodeConstraintViolation).
			With("operation", "insert offline score").
			With("score_id", id).
			Wrap(store.ErrConstraintViolation)
	}
	r.ids[id] = struct{}{}
	r.entries = append(r.entries, clone(entry))
	return nil
}

// ListByStudent implements score.Repository.
func (r *Repository) ListByStudent(_ context.Context, studentID string) ([]score.OfflineTestScore, error) {
	return r.collect(func(e score.OfflineTestScore) bool { return e.StudentID == studentID }), nil
}

// ListAll implements score.Repository.
func (r *Repository) ListAll(_ context.Context) ([]score.OfflineTestScore, error) {
	return r.collect(func(score.OfflineTestScore) bool { return true }), nil
}

func (r *Repository) collect(keep func(score.OfflineTestScore) bool) []score.OfflineTestScore {
	r.mu.RLock()
	out := make([]score.OfflineTestScore, 0, len(r.entries))
	for _, e := range r.entries {
		if keep(e) {
			out = append(out, clone(e))
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return score.Newer(out[i], out[j]) })
	return out
}

func clone(e score.OfflineTestScore) score.OfflineTestScore {
	if e.Notes != nil {
		n := *e.Notes
		e.Notes = &n
	}
	return e
}
