// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

// Package memory provides an in-process progress.Repository.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lexiclass/lexiclass/internal/progress"
)

// Repository keeps records in a map guarded by a RWMutex. Records are
// copied on the way in and out, so a reader never sees a partial write.
type Repository struct {
	mu      sync.RWMutex
	records map[progress.Key]progress.Record
}

var _ progress.Repository = (*Repository)(nil)

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{records: make(map[progress.Key]progress.Record)}
}

// Upsert implements progress.Repository.
func (r *Repository) Upsert(_ context.Context, record progress.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.Key()] = record.Clone()
	return nil
}

// Get implements progress.Repository.
func (r *Repository) Get(_ context.Context, key progress.Key) (progress.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[key]
	if !ok {
		return progress.Record{}, false, nil
	}
	return rec.Clone(), true, nil
}

// List implements progress.Repository.
func (r *Repository) List(_ context.Context, studentID string) ([]progress.Record, error) {
	r.mu.RLock()
	out := make([]progress.Record, 0, len(r.records))
	for k, rec := range r.records {
		if studentID == progress.AllStudents || k.StudentID == studentID {
			out = append(out, rec.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		if a.UnitID != b.UnitID {
			return a.UnitID < b.UnitID
		}
		return a.RoundID < b.RoundID
	})
	return out, nil
}
