// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

// Package progress persists per-round practice results. A record is keyed
// by (student, unit, round); writing the same key again replaces it.
package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/oops"
)

// AllStudents passed as a student ID lists every student's records.
const AllStudents = ""

// Score bounds, in percent.
const (
	MinScore = 0
	MaxScore = 100
)

// ErrInvalidRecord is returned when a record or key fails validation.
var ErrInvalidRecord = errors.New("invalid progress record")

// CodeInvalid is the oops code attached to validation failures.
const CodeInvalid = "PROGRESS_INVALID"

// Attempt is one answer given during a round. Order within a record is the
// order the answers were given.
type Attempt struct {
	WordID     string `json:"word_id"`
	UserAnswer string `json:"user_answer"`
	Correct    bool   `json:"correct"`
}

// Key identifies a record.
type Key struct {
	StudentID string `json:"student_id"`
	UnitID    string `json:"unit_id"`
	RoundID   string `json:"round_id"`
}

// Validate checks that every component is present.
func (k Key) Validate() error {
	switch {
	case strings.TrimSpace(k.StudentID) == "":
		return invalid("student_id", "student id cannot be empty")
	case strings.TrimSpace(k.UnitID) == "":
		return invalid("unit_id", "unit id cannot be empty")
	case strings.TrimSpace(k.RoundID) == "":
		return invalid("round_id", "round id cannot be empty")
	}
	return nil
}

// Record is a student's result for one round.
type Record struct {
	StudentID string    `json:"student_id"`
	UnitID    string    `json:"unit_id"`
	RoundID   string    `json:"round_id"`
	Score     int       `json:"score"`
	Attempts  []Attempt `json:"attempts"`
	Completed bool      `json:"completed"`
	// Timestamp is stored in UTC at millisecond precision. Finer parts are
	// dropped on Upsert, so only millisecond-precision records read back
	// equal to what was written.
	Timestamp time.Time `json:"timestamp"`
}

// Key returns the record's identity.
func (r Record) Key() Key {
	return Key{StudentID: r.StudentID, UnitID: r.UnitID, RoundID: r.RoundID}
}

// Validate checks the key and the score bounds.
func (r Record) Validate() error {
	if err := r.Key().Validate(); err != nil {
		return err
	}
	if r.Score < MinScore || r.Score > MaxScore {
		return oops.Code(CodeInvalid).
			With("field", "score").
			With("score", r.Score).
			Wrap(fmt.Errorf("%w: score must be between %d and %d", ErrInvalidRecord, MinScore, MaxScore))
	}
	return nil
}

// Clone returns a deep copy so callers never share the attempts slice.
func (r Record) Clone() Record {
	c := r
	c.Attempts = make([]Attempt, len(r.Attempts))
	copy(c.Attempts, r.Attempts)
	return c
}

// Repository persists records. Upsert must be atomic per key.
type Repository interface {
	// Upsert inserts the record or replaces score, attempts, completed and
	// timestamp of the existing record with the same key.
	Upsert(ctx context.Context, record Record) error

	// Get returns the record for key. found is false when none exists.
	Get(ctx context.Context, key Key) (record Record, found bool, err error)

	// List returns records for studentID, or every record for AllStudents,
	// ordered by student, unit and round.
	List(ctx context.Context, studentID string) ([]Record, error)
}

func invalid(field, msg string) error {
	return oops.Code(CodeInvalid).
		With("field", field).
		Wrap(fmt.Errorf("%w: %s", ErrInvalidRecord, msg))
}
