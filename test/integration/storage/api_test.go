// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

//go:build integration

package storage_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/lexiclass/lexiclass/internal/auth"
	authpostgres "github.com/lexiclass/lexiclass/internal/auth/postgres"
	"github.com/lexiclass/lexiclass/internal/httpapi"
	"github.com/lexiclass/lexiclass/internal/progress"
	progresspostgres "github.com/lexiclass/lexiclass/internal/progress/postgres"
	"github.com/lexiclass/lexiclass/internal/score"
	scorepostgres "github.com/lexiclass/lexiclass/internal/score/postgres"
)

var _ = Describe("HTTP API over PostgreSQL", func() {
	var (
		ctx     context.Context
		router  *gin.Engine
		student *auth.User
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		ctx = context.Background()
		truncateAll(ctx, env.pool)

		users := authpostgres.NewUserRepository(env.pool)
		hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		prov, err := auth.NewProvisioner(users, hasher)
		Expect(err).NotTo(HaveOccurred())
		student, err = prov.Create(ctx, auth.NewAccount{Username: "ana_k", Password: "vocab123", Role: auth.RoleStudent, Name: "Ana K"})
		Expect(err).NotTo(HaveOccurred())
		_, err = prov.Create(ctx, auth.NewAccount{Username: "mr_lee", Password: "chalkboard", Role: auth.RoleTeacher, Name: "Mr Lee"})
		Expect(err).NotTo(HaveOccurred())

		validator, err := auth.NewCredentialValidatorWithLogger(users, hasher, env.logger)
		Expect(err).NotTo(HaveOccurred())
		tokens, err := auth.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
		Expect(err).NotTo(HaveOccurred())
		authSvc, err := auth.NewServiceWithLogger(validator, tokens, users, env.logger)
		Expect(err).NotTo(HaveOccurred())
		ps, err := progress.NewStore(progresspostgres.NewRepository(env.pool), progress.WithLogger(env.logger))
		Expect(err).NotTo(HaveOccurred())
		ledger, err := score.NewLedger(scorepostgres.NewRepository(env.pool), score.WithLogger(env.logger))
		Expect(err).NotTo(HaveOccurred())

		router, err = httpapi.NewRouter(httpapi.Deps{
			Auth:     authSvc,
			Progress: ps,
			Scores:   ledger,
			Logger:   env.logger,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	send := func(method, path, token string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	login := func(username, password string) string {
		rec := send(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": username, "password": password})
		Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())
		var body struct {
			Token string `json:"token"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return body.Token
	}

	It("carries a practice round and a teacher grade end to end", func() {
		studentToken := login("ana_k", "vocab123")
		teacherToken := login("mr_lee", "chalkboard")

		rec := send(http.MethodPut, "/api/v1/progress", studentToken, map[string]any{
			"student_id": student.ID,
			"unit_id":    "u1",
			"round_id":   "r1",
			"score":      80,
			"attempts":   []map[string]any{{"word_id": "w1", "user_answer": "cat", "correct": true}},
			"completed":  true,
			"timestamp":  1741597200123,
		})
		Expect(rec.Code).To(Equal(http.StatusNoContent), rec.Body.String())

		rec = send(http.MethodGet, "/api/v1/progress/"+student.ID+"/u1/r1", teacherToken, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{
			"student_id": "` + student.ID + `",
			"unit_id": "u1",
			"round_id": "r1",
			"score": 80,
			"attempts": [{"word_id": "w1", "user_answer": "cat", "correct": true}],
			"completed": true,
			"timestamp": 1741597200123
		}`))

		rec = send(http.MethodPost, "/api/v1/scores", teacherToken, map[string]any{"student_id": student.ID, "score": 5})
		Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())

		rec = send(http.MethodGet, "/api/v1/scores", studentToken, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		var entries []map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &entries)).To(Succeed())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0]).To(HaveKeyWithValue("score", BeNumerically("==", 5)))
	})

	It("rejects a student posting a grade", func() {
		studentToken := login("ana_k", "vocab123")
		rec := send(http.MethodPost, "/api/v1/scores", studentToken, map[string]any{"student_id": student.ID, "score": 5})
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})
})
