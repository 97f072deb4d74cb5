// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/lexiclass/lexiclass/internal/auth"
	"github.com/lexiclass/lexiclass/internal/progress"
)

type attemptPayload struct {
	WordID     string `json:"word_id" binding:"required"`
	UserAnswer string `json:"user_answer"`
	Correct    bool   `json:"correct"`
}

type progressRequest struct {
	StudentID string           `json:"student_id" binding:"required"`
	UnitID    string           `json:"unit_id" binding:"required"`
	RoundID   string           `json:"round_id" binding:"required"`
	Score     *int             `json:"score" binding:"required"`
	Attempts  []attemptPayload `json:"attempts" binding:"dive"`
	Completed bool             `json:"completed"`
	// Timestamp is Unix milliseconds; omitted means now.
	Timestamp *int64 `json:"timestamp"`
}

func (r progressRequest) record() progress.Record {
	rec := progress.Record{
		StudentID: r.StudentID,
		UnitID:    r.UnitID,
		RoundID:   r.RoundID,
		Score:     *r.Score,
		Attempts:  make([]progress.Attempt, 0, len(r.Attempts)),
		Completed: r.Completed,
	}
	for _, a := range r.Attempts {
		rec.Attempts = append(rec.Attempts, progress.Attempt(a))
	}
	if r.Timestamp != nil {
		rec.Timestamp = time.UnixMilli(*r.Timestamp).UTC()
	}
	return rec
}

type progressResponse struct {
	StudentID string             `json:"student_id"`
	UnitID    string             `json:"unit_id"`
	RoundID   string             `json:"round_id"`
	Score     int                `json:"score"`
	Attempts  []progress.Attempt `json:"attempts"`
	Completed bool               `json:"completed"`
	Timestamp int64              `json:"timestamp"`
}

func newProgressResponse(rec progress.Record) progressResponse {
	attempts := rec.Attempts
	if attempts == nil {
		attempts = []progress.Attempt{}
	}
	return progressResponse{
		StudentID: rec.StudentID,
		UnitID:    rec.UnitID,
		RoundID:   rec.RoundID,
		Score:     rec.Score,
		Attempts:  attempts,
		Completed: rec.Completed,
		Timestamp: rec.Timestamp.UnixMilli(),
	}
}

func (s *server) putProgress(c *gin.Context) {
	var req progressRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}

	identity, _ := identityFrom(c)
	if err := ensureOwnData(identity, req.StudentID); err != nil {
		s.fail(c, err)
		return
	}

	if err := s.progress.Upsert(c.Request.Context(), req.record()); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) getProgress(c *gin.Context) {
	key := progress.Key{
		StudentID: c.Param("student_id"),
		UnitID:    c.Param("unit_id"),
		RoundID:   c.Param("round_id"),
	}

	identity, _ := identityFrom(c)
	if err := ensureOwnData(identity, key.StudentID); err != nil {
		s.fail(c, err)
		return
	}

	rec, found, err := s.progress.Get(c.Request.Context(), key)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !found {
		s.fail(c, oops.Code("PROGRESS_NOT_FOUND").
			With("student_id", key.StudentID).
			With("unit_id", key.UnitID).
			With("round_id", key.RoundID).
			Wrap(errNotFound))
		return
	}
	c.JSON(http.StatusOK, newProgressResponse(rec))
}

func (s *server) listProgress(c *gin.Context) {
	identity, _ := identityFrom(c)
	studentID := scopeStudent(identity, c.Query("student_id"))

	records, err := s.progress.ListByStudent(c.Request.Context(), studentID)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]progressResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, newProgressResponse(rec))
	}
	c.JSON(http.StatusOK, out)
}

// ensureOwnData lets teachers through and students only to their own id.
func ensureOwnData(identity auth.Identity, studentID string) error {
	if identity.Role == auth.RoleTeacher || identity.ID == studentID {
		return nil
	}
	return forbidden(identity, "students may only access their own data")
}

// scopeStudent resolves the student filter of a list request. Students
// always see their own data whatever they ask for.
func scopeStudent(identity auth.Identity, requested string) string {
	if identity.Role == auth.RoleTeacher {
		return requested
	}
	return identity.ID
}
