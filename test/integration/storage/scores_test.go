// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

//go:build integration

package storage_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/lexiclass/lexiclass/internal/score"
	scorepostgres "github.com/lexiclass/lexiclass/internal/score/postgres"
)

var _ = Describe("Score ledger", func() {
	var (
		ctx    context.Context
		ledger *score.Ledger
		now    time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx, env.pool)

		now = time.Date(2025, 3, 10, 9, 0, 0, 123456789, time.UTC)
		var err error
		ledger, err = score.NewLedger(scorepostgres.NewRepository(env.pool),
			score.WithLogger(env.logger),
			score.WithClock(func() time.Time {
				now = now.Add(time.Second)
				return now
			}),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	It("stores every add as a new entry and reads them back newest first", func() {
		notes := "retake next week"
		first, err := ledger.Add(ctx, score.AddInput{StudentID: "s1", TeacherID: "t1", Score: 3, Notes: &notes})
		Expect(err).NotTo(HaveOccurred())
		second, err := ledger.Add(ctx, score.AddInput{StudentID: "s1", TeacherID: "t1", Score: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(second.ID).NotTo(Equal(first.ID))

		entries, err := ledger.ListByStudent(ctx, "s1")
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(Equal([]score.OfflineTestScore{second, first}))
		Expect(entries[0].Notes).To(BeNil())
		Expect(*entries[1].Notes).To(Equal("retake next week"))
	})

	It("lists the whole ledger across students", func() {
		for _, s := range []string{"s1", "s2", "s1"} {
			_, err := ledger.Add(ctx, score.AddInput{StudentID: s, TeacherID: "t1", Score: 5})
			Expect(err).NotTo(HaveOccurred())
		}

		all, err := ledger.ListAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(3))
		Expect(all[0].Date.After(all[1].Date)).To(BeTrue())
		Expect(all[1].Date.After(all[2].Date)).To(BeTrue())
	})

	It("enforces the grade range in the schema as well", func() {
		_, err := env.pool.Exec(ctx,
			`INSERT INTO offline_scores (id, student_id, teacher_id, score, date) VALUES ('x', 's1', 't1', 6, now())`)
		Expect(err).To(HaveOccurred())
	})
})
