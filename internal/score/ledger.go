// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package score

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lexiclass/lexiclass/internal/store"
)

const component = "score"

var tracer = otel.Tracer("lexiclass/score")

// Ledger records and lists offline test scores. It performs no
// authorization; callers decide who may add or read entries.
type Ledger struct {
	repo     Repository
	logger   *slog.Logger
	observer store.OperationObserver
	now      func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithObserver records the outcome of every repository call.
func WithObserver(o store.OperationObserver) Option {
	return func(l *Ledger) {
		if o != nil {
			l.observer = o
		}
	}
}

// WithClock replaces the time source for entry dates and ids.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLedger creates a Ledger over repo.
func NewLedger(repo Repository, opts ...Option) (*Ledger, error) {
	if repo == nil {
		return nil, oops.Code("SCORE_INVALID_CONFIG").Errorf("score repository is required")
	}
	l := &Ledger{
		repo:     repo,
		logger:   slog.Default(),
		observer: store.NopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Add appends a new entry dated now and returns it as stored. Adding the
// same input twice creates two entries.
func (l *Ledger) Add(ctx context.Context, in AddInput) (_ OfflineTestScore, err error) {
	ctx, span := tracer.Start(ctx, "score.add", trace.WithAttributes(
		attribute.String("score.student_id", in.StudentID),
		attribute.String("score.teacher_id", in.TeacherID),
	))
	defer func() { store.EndSpan(span, err) }()

	if err := in.Validate(); err != nil {
		return OfflineTestScore{}, err
	}

	// TIMESTAMPTZ keeps microseconds.
	now := l.now().UTC().Truncate(time.Microsecond)
	id, err := ulid.New(ulid.Timestamp(now), ulid.DefaultEntropy())
	if err != nil {
		return OfflineTestScore{}, oops.Code("SCORE_ID_FAILED").
			With("operation", "generate id").
			Wrap(err)
	}

	entry := OfflineTestScore{
		ID:        id,
		StudentID: in.StudentID,
		TeacherID: in.TeacherID,
		Score:     in.Score,
		Notes:     normalizeNotes(in.Notes),
		Date:      now,
	}

	err = l.repo.Insert(ctx, entry)
	l.observer.ObserveOperation(component, "add", err)
	if err != nil {
		l.logger.ErrorContext(ctx, "offline score insert failed",
			"student_id", entry.StudentID,
			"teacher_id", entry.TeacherID,
			"error", err.Error(),
		)
		return OfflineTestScore{}, err
	}

	span.SetAttributes(attribute.String("score.id", entry.ID.String()))
	l.logger.InfoContext(ctx, "offline score recorded",
		"score_id", entry.ID.String(),
		"student_id", entry.StudentID,
		"teacher_id", entry.TeacherID,
		"score", int(entry.Score),
	)
	return entry, nil
}

// ListByStudent returns the entries of studentID, newest first.
func (l *Ledger) ListByStudent(ctx context.Context, studentID string) (_ []OfflineTestScore, err error) {
	ctx, span := tracer.Start(ctx, "score.list_by_student",
		trace.WithAttributes(attribute.String("score.student_id", studentID)))
	defer func() { store.EndSpan(span, err) }()

	if studentID == "" {
		return nil, invalid("student_id", "student id cannot be empty")
	}
	entries, err := l.repo.ListByStudent(ctx, studentID)
	l.observer.ObserveOperation(component, "list_by_student", err)
	if err != nil {
		return nil, err
	}
	return nonNil(entries), nil
}

// ListAll returns every entry, newest first.
func (l *Ledger) ListAll(ctx context.Context) (_ []OfflineTestScore, err error) {
	ctx, span := tracer.Start(ctx, "score.list_all")
	defer func() { store.EndSpan(span, err) }()

	entries, err := l.repo.ListAll(ctx)
	l.observer.ObserveOperation(component, "list_all", err)
	if err != nil {
		return nil, err
	}
	return nonNil(entries), nil
}

func nonNil(entries []OfflineTestScore) []OfflineTestScore {
	if entries == nil {
		return []OfflineTestScore{}
	}
	return entries
}
