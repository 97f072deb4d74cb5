// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lexiclass/lexiclass/internal/auth"
	authpostgres "github.com/lexiclass/lexiclass/internal/auth/postgres"
	"github.com/lexiclass/lexiclass/internal/config"
	"github.com/lexiclass/lexiclass/internal/store"
)

// Roster is the YAML document read by "user import".
type Roster struct {
	Users []RosterEntry `yaml:"users"`
}

// RosterEntry is one account in a roster file.
type RosterEntry struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
}

// NewUserCmd creates the user command with its add and import subcommands.
func NewUserCmd(opts *rootOptions, deps *UserDeps) *cobra.Command {
	if deps == nil {
		deps = &UserDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = defaultPoolFactory
	}

	cmd := &cobra.Command{
		Use:   "user",
		Short: "Provision teacher and student accounts",
	}
	cmd.AddCommand(newUserAddCmd(opts, deps))
	cmd.AddCommand(newUserImportCmd(opts, deps))
	return cmd
}

func newUserAddCmd(opts *rootOptions, deps *UserDeps) *cobra.Command {
	var entry RosterEntry

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create one account; the password is read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			entry.Password = password

			return withProvisioner(cmd, opts, deps, func(ctx context.Context, prov *auth.Provisioner) error {
				user, err := provision(ctx, prov, entry)
				if err != nil {
					return err
				}
				cmd.Printf("Created %s %s (%s)\n", user.Role, user.Username, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&entry.Username, "username", "", "login name")
	cmd.Flags().StringVar(&entry.Role, "role", string(auth.RoleStudent), "teacher or student")
	cmd.Flags().StringVar(&entry.Name, "name", "", "display name")
	cmd.Flags().StringVar(&entry.Email, "email", "", "optional email address")
	_ = cmd.MarkFlagRequired("username") //nolint:errcheck // flag is defined above
	_ = cmd.MarkFlagRequired("name")     //nolint:errcheck // flag is defined above

	return cmd
}

func newUserImportCmd(opts *rootOptions, deps *UserDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "import ROSTER.yaml",
		Short: "Create every account in a YAML roster, skipping existing usernames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := loadRoster(args[0])
			if err != nil {
				return err
			}

			return withProvisioner(cmd, opts, deps, func(ctx context.Context, prov *auth.Provisioner) error {
				var created, skipped int
				for i, entry := range roster.Users {
					user, err := provision(ctx, prov, entry)
					switch {
					case errors.Is(err, store.ErrConstraintViolation):
						skipped++
						cmd.Printf("Skipped %s: already exists\n", entry.Username)
					case err != nil:
						return oops.With("entry", i+1).With("username", entry.Username).Wrap(err)
					default:
						created++
						cmd.Printf("Created %s %s (%s)\n", user.Role, user.Username, user.ID)
					}
				}
				cmd.Printf("Imported %d users, skipped %d\n", created, skipped)
				return nil
			})
		},
	}
}

// withProvisioner opens the database and runs fn with a provisioner that
// hashes at the configured bcrypt cost.
func withProvisioner(cmd *cobra.Command, opts *rootOptions, deps *UserDeps, fn func(context.Context, *auth.Provisioner) error) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL, connectOptions(cfg), logger)
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err //nolint:wrapcheck // coded by auth
	}
	prov, err := auth.NewProvisioner(authpostgres.NewUserRepository(pool), hasher)
	if err != nil {
		return err //nolint:wrapcheck // coded by auth
	}
	return fn(ctx, prov)
}

func connectOptions(cfg *config.Config) store.ConnectOptions {
	return store.ConnectOptions{
		MaxConns:       cfg.Database.MaxConns,
		ConnectRetries: cfg.Database.ConnectRetries,
	}
}

func provision(ctx context.Context, prov *auth.Provisioner, entry RosterEntry) (*auth.User, error) {
	role, err := auth.ParseRole(strings.TrimSpace(entry.Role))
	if err != nil {
		return nil, err //nolint:wrapcheck // coded by auth
	}
	//nolint:wrapcheck // coded by auth
	return prov.Create(ctx, auth.NewAccount{
		Username: strings.TrimSpace(entry.Username),
		Password: entry.Password,
		Role:     role,
		Name:     strings.TrimSpace(entry.Name),
		Email:    strings.TrimSpace(entry.Email),
	})
}

// readPassword takes the first line of r.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", oops.Code("USER_PASSWORD_READ_FAILED").Wrap(err)
	}
	password := strings.TrimSpace(line)
	if password == "" {
		return "", oops.Code("USER_PASSWORD_REQUIRED").Errorf("password must be supplied on stdin")
	}
	return password, nil
}

func loadRoster(path string) (*Roster, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, oops.Code("ROSTER_READ_FAILED").With("path", path).Wrap(err)
	}

	var roster Roster
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&roster); err != nil && !errors.Is(err, io.EOF) {
		return nil, oops.Code("ROSTER_INVALID").With("path", path).Wrap(err)
	}
	if len(roster.Users) == 0 {
		return nil, oops.Code("ROSTER_INVALID").With("path", path).Errorf("roster has no users")
	}
	for i, entry := range roster.Users {
		if strings.TrimSpace(entry.Password) == "" {
			return nil, oops.Code("ROSTER_INVALID").
				With("path", path).
				With("entry", i+1).
				With("username", entry.Username).
				Errorf("entry %d has no password", i+1)
		}
	}
	return &roster, nil
}
