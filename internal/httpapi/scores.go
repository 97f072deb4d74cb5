// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexiclass/lexiclass/internal/score"
)

type addScoreRequest struct {
	StudentID string  `json:"student_id" binding:"required"`
	Score     *int    `json:"score" binding:"required"`
	Notes     *string `json:"notes"`
}

func (s *server) addScore(c *gin.Context) {
	var req addScoreRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}

	identity, _ := identityFrom(c)
	entry, err := s.scores.Add(c.Request.Context(), score.AddInput{
		StudentID: req.StudentID,
		TeacherID: identity.ID,
		Score:     score.Grade(*req.Score),
		Notes:     req.Notes,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *server) listScores(c *gin.Context) {
	identity, _ := identityFrom(c)
	studentID := scopeStudent(identity, c.Query("student_id"))

	var (
		entries []score.OfflineTestScore
		err     error
	)
	if studentID == "" {
		entries, err = s.scores.ListAll(c.Request.Context())
	} else {
		entries, err = s.scores.ListByStudent(c.Request.Context(), studentID)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
