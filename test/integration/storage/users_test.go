// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

//go:build integration

package storage_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/lexiclass/lexiclass/internal/auth"
	authpostgres "github.com/lexiclass/lexiclass/internal/auth/postgres"
	"github.com/lexiclass/lexiclass/internal/store"
)

var _ = Describe("Users", func() {
	var (
		ctx   context.Context
		users *authpostgres.UserRepository
		prov  *auth.Provisioner
		svc   *auth.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx, env.pool)

		users = authpostgres.NewUserRepository(env.pool)
		hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		prov, err = auth.NewProvisioner(users, hasher)
		Expect(err).NotTo(HaveOccurred())

		validator, err := auth.NewCredentialValidatorWithLogger(users, hasher, env.logger)
		Expect(err).NotTo(HaveOccurred())
		tokens, err := auth.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
		Expect(err).NotTo(HaveOccurred())
		svc, err = auth.NewServiceWithLogger(validator, tokens, users, env.logger)
		Expect(err).NotTo(HaveOccurred())
	})

	It("logs in a provisioned user and resolves the token", func() {
		_, err := prov.Create(ctx, auth.NewAccount{Username: "ana_k", Password: "vocab123", Role: auth.RoleStudent, Name: "Ana K"})
		Expect(err).NotTo(HaveOccurred())

		result, err := svc.Login(ctx, "ana_k", " vocab123 ")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Identity.Name).To(Equal("Ana K"))

		identity, err := svc.Authorize(ctx, result.Token)
		Expect(err).NotTo(HaveOccurred())
		current, err := svc.CurrentUser(ctx, identity)
		Expect(err).NotTo(HaveOccurred())
		Expect(current).To(Equal(result.Identity))
	})

	It("rejects a wrong password and an unknown user alike", func() {
		_, err := prov.Create(ctx, auth.NewAccount{Username: "ana_k", Password: "vocab123", Role: auth.RoleStudent, Name: "Ana K"})
		Expect(err).NotTo(HaveOccurred())

		_, errWrong := svc.Login(ctx, "ana_k", "nope")
		_, errUnknown := svc.Login(ctx, "ghost", "vocab123")
		Expect(errWrong).To(MatchError(auth.ErrBadCredentials))
		Expect(errUnknown).To(MatchError(auth.ErrBadCredentials))
		Expect(errWrong.Error()).To(Equal(errUnknown.Error()))
	})

	It("refuses a duplicate username", func() {
		_, err := prov.Create(ctx, auth.NewAccount{Username: "ana_k", Password: "a", Role: auth.RoleStudent, Name: "Ana"})
		Expect(err).NotTo(HaveOccurred())

		_, err = prov.Create(ctx, auth.NewAccount{Username: "ana_k", Password: "b", Role: auth.RoleTeacher, Name: "Other"})
		Expect(err).To(MatchError(store.ErrConstraintViolation))
	})

	It("lists students ordered by name", func() {
		for _, a := range []auth.NewAccount{
			{Username: "zoe_p", Password: "pw", Role: auth.RoleStudent, Name: "Zoe P"},
			{Username: "mr_lee", Password: "pw", Role: auth.RoleTeacher, Name: "Mr Lee"},
			{Username: "ana_k", Password: "pw", Role: auth.RoleStudent, Name: "Ana K"},
		} {
			_, err := prov.Create(ctx, a)
			Expect(err).NotTo(HaveOccurred())
		}

		students, err := svc.ListStudents(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(students).To(HaveLen(2))
		Expect(students[0].Username).To(Equal("ana_k"))
		Expect(students[1].Username).To(Equal("zoe_p"))
	})
})
