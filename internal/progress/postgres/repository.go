// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

// Package postgres implements progress.Repository on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/lexiclass/lexiclass/internal/progress"
	"github.com/lexiclass/lexiclass/internal/store"
)

const selectProgress = `SELECT student_id, unit_id, round_id, score, attempts, completed, timestamp FROM student_progress`

// Repository stores progress in the student_progress table.
type Repository struct {
	pool store.Pool
}

var _ progress.Repository = (*Repository)(nil)

// NewRepository creates a new Repository.
func NewRepository(pool store.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert writes record with a single INSERT ... ON CONFLICT statement, so
// concurrent writers to the same key serialize inside PostgreSQL.
func (r *Repository) Upsert(ctx context.Context, record progress.Record) error {
	attempts, err := json.Marshal(record.Attempts)
	if err != nil {
		return oops.Code("PROGRESS_ENCODE_FAILED").
			With("operation", "marshal attempts").
			Wrap(err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO student_progress (student_id, unit_id, round_id, score, attempts, completed, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, unit_id, round_id) DO UPDATE SET
			score = EXCLUDED.score,
			attempts = EXCLUDED.attempts,
			completed = EXCLUDED.completed,
			timestamp = EXCLUDED.timestamp
	`,
		record.StudentID,
		record.UnitID,
		record.RoundID,
		record.Score,
		attempts,
		record.Completed,
		record.Timestamp.UnixMilli(),
	)
	if err != nil {
		return oops.
			With("student_id", record.StudentID).
			With("unit_id", record.UnitID).
			With("round_id", record.RoundID).
			Wrap(store.WrapError("upsert progress", err))
	}
	return nil
}

// Get implements progress.Repository.
func (r *Repository) Get(ctx context.Context, key progress.Key) (progress.Record, bool, error) {
	row := r.pool.QueryRow(ctx,
		selectProgress+` WHERE student_id = $1 AND unit_id = $2 AND round_id = $3`,
		key.StudentID, key.UnitID, key.RoundID)

	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return progress.Record{}, false, nil
	}
	if err != nil {
		return progress.Record{}, false, oops.
			With("student_id", key.StudentID).
			Wrap(store.WrapError("get progress", err))
	}
	return rec, true, nil
}

// List implements progress.Repository. Both forms are a single SELECT and
// therefore read one snapshot.
func (r *Repository) List(ctx context.Context, studentID string) ([]progress.Record, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if studentID == progress.AllStudents {
		rows, err = r.pool.Query(ctx, selectProgress+` ORDER BY student_id, unit_id, round_id`)
	} else {
		rows, err = r.pool.Query(ctx,
			selectProgress+` WHERE student_id = $1 ORDER BY unit_id, round_id`, studentID)
	}
	if err != nil {
		return nil, oops.With("student_id", studentID).Wrap(store.WrapError("list progress", err))
	}
	defer rows.Close()

	records := make([]progress.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, store.WrapError("scan progress row", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, store.WrapError("iterate progress", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (progress.Record, error) {
	var (
		rec       progress.Record
		attempts  []byte
		timestamp int64
	)
	if err := row.Scan(
		&rec.StudentID,
		&rec.UnitID,
		&rec.RoundID,
		&rec.Score,
		&attempts,
		&rec.Completed,
		&timestamp,
	); err != nil {
		return progress.Record{}, err //nolint:wrapcheck // callers add context
	}

	rec.Attempts = []progress.Attempt{}
	if len(attempts) > 0 {
		if err := json.Unmarshal(attempts, &rec.Attempts); err != nil {
			return progress.Record{}, oops.Code("PROGRESS_DECODE_FAILED").
				With("operation", "unmarshal attempts").
				Wrap(err)
		}
		if rec.Attempts == nil {
			rec.Attempts = []progress.Attempt{}
		}
	}
	rec.Timestamp = time.UnixMilli(timestamp).UTC()
	return rec, nil
}
