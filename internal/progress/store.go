// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lexiclass/lexiclass/internal/store"
)

const component = "progress"

var tracer = otel.Tracer("lexiclass/progress")

func keyAttributes(k Key) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("progress.student_id", k.StudentID),
		attribute.String("progress.unit_id", k.UnitID),
		attribute.String("progress.round_id", k.RoundID),
	)
}

// Store validates and persists progress records.
type Store struct {
	repo     Repository
	logger   *slog.Logger
	observer store.OperationObserver
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver records the outcome of every repository call.
func WithObserver(o store.OperationObserver) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock replaces the time source used for records without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a Store over repo.
func NewStore(repo Repository, opts ...Option) (*Store, error) {
	if repo == nil {
		return nil, oops.Code("PROGRESS_INVALID_CONFIG").Errorf("progress repository is required")
	}
	s := &Store{
		repo:     repo,
		logger:   slog.Default(),
		observer: store.NopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Upsert validates record and writes it. Repeating the same record is a
// no-op in effect; a later write to the same key replaces the earlier one.
// The timestamp is kept at millisecond precision, and a zero timestamp is
// replaced with the current time.
func (s *Store) Upsert(ctx context.Context, record Record) (err error) {
	ctx, span := tracer.Start(ctx, "progress.upsert", keyAttributes(record.Key()))
	defer func() { store.EndSpan(span, err) }()

	if err := record.Validate(); err != nil {
		return err
	}

	rec := record.Clone()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	rec.Timestamp = rec.Timestamp.UTC().Truncate(time.Millisecond)

	err = s.repo.Upsert(ctx, rec)
	s.observer.ObserveOperation(component, "upsert", err)
	if err != nil {
		s.logger.ErrorContext(ctx, "progress upsert failed",
			"student_id", rec.StudentID,
			"unit_id", rec.UnitID,
			"round_id", rec.RoundID,
			"error", err.Error(),
		)
		return err
	}
	s.logger.DebugContext(ctx, "progress saved",
		"student_id", rec.StudentID,
		"unit_id", rec.UnitID,
		"round_id", rec.RoundID,
		"score", rec.Score,
	)
	return nil
}

// Get returns the record for key. A missing record is (zero, false, nil).
func (s *Store) Get(ctx context.Context, key Key) (_ Record, _ bool, err error) {
	ctx, span := tracer.Start(ctx, "progress.get", keyAttributes(key))
	defer func() { store.EndSpan(span, err) }()

	if err := key.Validate(); err != nil {
		return Record{}, false, err
	}
	rec, found, err := s.repo.Get(ctx, key)
	s.observer.ObserveOperation(component, "get", err)
	if err != nil {
		return Record{}, false, err
	}
	span.SetAttributes(attribute.Bool("progress.found", found))
	return rec, found, nil
}

// ListByStudent returns every record of studentID, or of all students
// when studentID is AllStudents.
func (s *Store) ListByStudent(ctx context.Context, studentID string) (_ []Record, err error) {
	ctx, span := tracer.Start(ctx, "progress.list",
		trace.WithAttributes(attribute.String("progress.student_id", studentID)))
	defer func() { store.EndSpan(span, err) }()

	records, err := s.repo.List(ctx, studentID)
	s.observer.ObserveOperation(component, "list", err)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("progress.records", len(records)))
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
