// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

// Package score keeps the append-only ledger of offline test grades that
// teachers record for students.
package score

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// CodeInvalid is the error code of every validation failure.
const CodeInvalid = "SCORE_INVALID"

// ErrInvalidScore marks input rejected before it reaches the repository.
var ErrInvalidScore = errors.New("invalid offline score")

// Grade is an offline test grade on the 2..5 scale.
type Grade int

// Grade bounds.
const (
	MinGrade Grade = 2
	MaxGrade Grade = 5
)

// Valid reports whether g is within MinGrade..MaxGrade.
func (g Grade) Valid() bool {
	return g >= MinGrade && g <= MaxGrade
}

// OfflineTestScore is one immutable ledger entry.
type OfflineTestScore struct {
	ID        ulid.ULID `json:"id"`
	StudentID string    `json:"student_id"`
	TeacherID string    `json:"teacher_id"`
	Score     Grade     `json:"score"`
	Notes     *string   `json:"notes,omitempty"`
	Date      time.Time `json:"date"`
}

// AddInput is what a teacher supplies for a new entry. The id and date are
// assigned by the Ledger.
type AddInput struct {
	StudentID string
	TeacherID string
	Score     Grade
	Notes     *string
}

// Validate checks the ids and the grade range.
func (in AddInput) Validate() error {
	switch {
	case strings.TrimSpace(in.StudentID) == "":
		return invalid("student_id", "student id cannot be empty")
	case strings.TrimSpace(in.TeacherID) == "":
		return invalid("teacher_id", "teacher id cannot be empty")
	case !in.Score.Valid():
		return oops.Code(CodeInvalid).
			With("field", "score").
			With("score", int(in.Score)).
			Wrapf(ErrInvalidScore, "score must be between %d and %d", MinGrade, MaxGrade)
	}
	return nil
}

// Repository persists ledger entries. Entries are never updated or removed.
type Repository interface {
	Insert(ctx context.Context, entry OfflineTestScore) error
	// ListByStudent returns entries newest first, ties broken by id descending.
	ListByStudent(ctx context.Context, studentID string) ([]OfflineTestScore, error)
	// ListAll returns every entry in the same order as ListByStudent.
	ListAll(ctx context.Context) ([]OfflineTestScore, error)
}

// Newer reports whether a sorts before b in ledger order.
func Newer(a, b OfflineTestScore) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.ID.Compare(b.ID) > 0
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func invalid(field, msg string) error {
	return oops.Code(CodeInvalid).With("field", field).Wrapf(ErrInvalidScore, "%s", msg)
}
