// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

//go:build integration

package storage_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/lexiclass/lexiclass/internal/progress"
	progresspostgres "github.com/lexiclass/lexiclass/internal/progress/postgres"
)

var _ = Describe("Progress store", func() {
	var (
		ctx context.Context
		ps  *progress.Store
		key progress.Key
		ts  time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx, env.pool)

		var err error
		ps, err = progress.NewStore(progresspostgres.NewRepository(env.pool), progress.WithLogger(env.logger))
		Expect(err).NotTo(HaveOccurred())

		key = progress.Key{StudentID: "s1", UnitID: "u1", RoundID: "r1"}
		ts = time.UnixMilli(1741597200123).UTC()
	})

	record := func(score int, attempts ...progress.Attempt) progress.Record {
		return progress.Record{
			StudentID: key.StudentID,
			UnitID:    key.UnitID,
			RoundID:   key.RoundID,
			Score:     score,
			Attempts:  attempts,
			Completed: score == 100,
			Timestamp: ts,
		}
	}

	It("round-trips a record with attempts in order", func() {
		rec := record(75,
			progress.Attempt{WordID: "w1", UserAnswer: "cat", Correct: true},
			progress.Attempt{WordID: "w2", UserAnswer: "dgo", Correct: false},
		)
		Expect(ps.Upsert(ctx, rec)).To(Succeed())

		got, found, err := ps.Get(ctx, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(got).To(Equal(rec))
	})

	It("replaces the record on a second write to the same key", func() {
		Expect(ps.Upsert(ctx, record(40, progress.Attempt{WordID: "w1"}))).To(Succeed())
		Expect(ps.Upsert(ctx, record(100))).To(Succeed())

		got, _, err := ps.Get(ctx, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Score).To(Equal(100))
		Expect(got.Completed).To(BeTrue())
		Expect(got.Attempts).To(BeEmpty())

		var rows int
		Expect(env.pool.QueryRow(ctx, `SELECT count(*) FROM student_progress`).Scan(&rows)).To(Succeed())
		Expect(rows).To(Equal(1))
	})

	It("reports an absent record without error", func() {
		_, found, err := ps.Get(ctx, progress.Key{StudentID: "s1", UnitID: "u9", RoundID: "r9"})
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("never interleaves concurrent writers to one key", func() {
		const writers = 16
		var wg sync.WaitGroup
		for i := range writers {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				attempts := make([]progress.Attempt, i+1)
				for j := range attempts {
					attempts[j] = progress.Attempt{WordID: fmt.Sprintf("w%d", i)}
				}
				Expect(ps.Upsert(ctx, record(i, attempts...))).To(Succeed())
			}()
		}
		wg.Wait()

		got, found, err := ps.Get(ctx, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(got.Attempts).To(HaveLen(got.Score + 1))
		for _, a := range got.Attempts {
			Expect(a.WordID).To(Equal(fmt.Sprintf("w%d", got.Score)))
		}
	})

	It("lists one student or everyone in key order", func() {
		for _, k := range []progress.Key{
			{StudentID: "s2", UnitID: "u1", RoundID: "r1"},
			{StudentID: "s1", UnitID: "u2", RoundID: "r1"},
			{StudentID: "s1", UnitID: "u1", RoundID: "r2"},
			{StudentID: "s1", UnitID: "u1", RoundID: "r1"},
		} {
			rec := progress.Record{StudentID: k.StudentID, UnitID: k.UnitID, RoundID: k.RoundID, Score: 50, Timestamp: ts}
			Expect(ps.Upsert(ctx, rec)).To(Succeed())
		}

		mine, err := ps.ListByStudent(ctx, "s1")
		Expect(err).NotTo(HaveOccurred())
		Expect(mine).To(HaveLen(3))
		Expect([]string{mine[0].UnitID + "/" + mine[0].RoundID, mine[1].UnitID + "/" + mine[1].RoundID, mine[2].UnitID + "/" + mine[2].RoundID}).
			To(Equal([]string{"u1/r1", "u1/r2", "u2/r1"}))

		all, err := ps.ListByStudent(ctx, progress.AllStudents)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(4))
		Expect(all[3].StudentID).To(Equal("s2"))

		none, err := ps.ListByStudent(ctx, "nobody")
		Expect(err).NotTo(HaveOccurred())
		Expect(none).To(BeEmpty())
	})
})
