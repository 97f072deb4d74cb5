// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

// Package postgres implements score.Repository on PostgreSQL.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/lexiclass/lexiclass/internal/score"
	"github.com/lexiclass/lexiclass/internal/store"
)

const (
	selectScores = `SELECT id, student_id, teacher_id, score, notes, date FROM offline_scores`
	ledgerOrder  = ` ORDER BY date DESC, id DESC`
)

// Repository stores entries in the offline_scores table.
type Repository struct {
	pool store.Pool
}

var _ score.Repository = (*Repository)(nil)

// NewRepository creates a new Repository.
func NewRepository(pool store.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert implements score.Repository.
func (r *Repository) Insert(ctx context.Context, entry score.OfflineTestScore) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO offline_scores (id, student_id, teacher_id, score, notes, date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		entry.ID.String(),
		entry.StudentID,
		entry.TeacherID,
		int16(entry.Score),
		entry.Notes,
		entry.Date,
	)
	if err != nil {
		return oops.
			With("student_id", entry.StudentID).
			With("teacher_id", entry.TeacherID).
			Wrap(store.WrapError("insert offline score", err))
	}
	return nil
}

// ListByStudent implements score.Repository.
func (r *Repository) ListByStudent(ctx context.Context, studentID string) ([]score.OfflineTestScore, error) {
	rows, err := r.pool.Query(ctx, selectScores+` WHERE student_id = $1`+ledgerOrder, studentID)
	if err != nil {
		return nil, oops.With("student_id", studentID).Wrap(store.WrapError("list offline scores", err))
	}
	return collect(rows)
}

// ListAll implements score.Repository.
func (r *Repository) ListAll(ctx context.Context) ([]score.OfflineTestScore, error) {
	rows, err := r.pool.Query(ctx, selectScores+ledgerOrder)
	if err != nil {
		return nil, store.WrapError("list all offline scores", err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]score.OfflineTestScore, error) {
	defer rows.Close()

	entries := make([]score.OfflineTestScore, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, store.WrapError("iterate offline scores", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (score.OfflineTestScore, error) {
	var (
		entry score.OfflineTestScore
		id    string
		grade int16
		notes pgtype.Text
		date  time.Time
	)
	if err := row.Scan(&id, &entry.StudentID, &entry.TeacherID, &grade, &notes, &date); err != nil {
		return score.OfflineTestScore{}, store.WrapError("scan offline score", err)
	}

	parsed, err := ulid.Parse(id)
	if err != nil {
		return score.OfflineTestScore{}, oops.Code("SCORE_INVALID_ID").
			With("score_id", id).
			Wrap(err)
	}
	entry.ID = parsed
	entry.Score = score.Grade(grade)
	if notes.Valid {
		entry.Notes = &notes.String
	}
	entry.Date = date.UTC()
	return entry, nil
}
