// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/lexiclass/lexiclass/internal/config"
)

// NewMigrateCmd creates the migrate command and its subcommands. Bare
// "migrate" is the same as "migrate up".
func NewMigrateCmd(opts *rootOptions, deps *MigrateDeps) *cobra.Command {
	if deps == nil {
		deps = &MigrateDeps{}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = defaultMigratorFactory
	}

	withMigrator := func(fn func(cmd *cobra.Command, m Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			m, err := openMigrator(cfg, deps)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := m.Close(); closeErr != nil {
					cmd.PrintErrln("warning: closing migrator:", closeErr)
				}
			}()
			return fn(cmd, m, args)
		}
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply, roll back or inspect the embedded schema migrations for the
users, student_progress and offline_scores tables.`,
		RunE: withMigrator(runMigrateUp),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE:  withMigrator(runMigrateUp),
	})

	var confirmed bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all LexiClass tables",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m Migrator, _ []string) error {
			if !confirmed {
				return oops.Code("MIGRATE_NOT_CONFIRMED").Errorf("refusing to drop all tables without --yes")
			}
			if err := m.Down(); err != nil {
				return err //nolint:wrapcheck // coded by store
			}
			cmd.Println("All migrations rolled back")
			return nil
		}),
	}
	down.Flags().BoolVar(&confirmed, "yes", false, "confirm dropping all data")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied version and pending migrations",
		Args:  cobra.NoArgs,
		RunE:  withMigrator(runMigrateStatus),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it (dirty state recovery)",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m Migrator, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(version); err != nil {
				return err //nolint:wrapcheck // coded by store
			}
			cmd.Printf("Forced schema version to %d\n", version)
			return nil
		}),
	})

	return cmd
}

func openMigrator(cfg *config.Config, deps *MigrateDeps) (Migrator, error) {
	if err := cfg.ValidateStorage(); err != nil {
		return nil, oops.With("operation", "validate configuration").Wrap(err)
	}
	m, err := deps.MigratorFactory(cfg.Database.URL)
	if err != nil {
		return nil, oops.Code("MIGRATION_INIT_FAILED").With("operation", "open migrator").Wrap(err)
	}
	return m, nil
}

func runMigrateUp(cmd *cobra.Command, m Migrator, _ []string) error {
	cmd.Println("Running migrations...")
	if err := m.Up(); err != nil {
		return err //nolint:wrapcheck // coded by store
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, m Migrator, _ []string) error {
	status, err := m.Status()
	if err != nil {
		return err //nolint:wrapcheck // coded by store
	}

	current := "none"
	if status.Version > 0 {
		current = fmt.Sprintf("%d", status.Version)
		if status.Name != "" {
			current += " (" + status.Name + ")"
		}
	}
	cmd.Printf("Current version: %s\n", current)
	if status.Dirty {
		cmd.Println("State: DIRTY - fix the failed migration, then run 'lexiclass migrate force VERSION'")
	}
	cmd.Printf("Applied: %d\n", len(status.Applied))
	if len(status.Pending) == 0 {
		cmd.Println("Pending: none")
		return nil
	}
	pending := make([]string, 0, len(status.Pending))
	for _, v := range status.Pending {
		pending = append(pending, strconv.FormatUint(uint64(v), 10))
	}
	cmd.Printf("Pending: %s\n", strings.Join(pending, ", "))
	return nil
}

// parseForceVersion accepts a non-negative integer.
func parseForceVersion(s string) (int, error) {
	version, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer")
	}
	if version < 0 {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be non-negative")
	}
	return version, nil
}
