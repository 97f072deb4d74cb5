// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package store

import (
	"cmp"
	"embed"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	// Register pgx/v5 database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationFile is one embedded up migration.
type migrationFile struct {
	version uint
	name    string
}

// The embedded FS is immutable, so it is scanned once.
var catalog = sync.OnceValues(scanMigrations)

// migrator is the part of *migrate.Migrate the Migrator drives.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// Migrator applies the embedded schema migrations for users,
// student_progress and offline_scores.
type Migrator struct {
	m migrator
}

// MigrationStatus summarizes the schema state of a database.
type MigrationStatus struct {
	Version uint
	Name    string
	Dirty   bool
	Applied []uint
	Pending []uint
}

// NewMigrator creates a Migrator for databaseURL. postgres:// and
// postgresql:// URLs are rewritten to the pgx5:// scheme golang-migrate
// registers for pgx/v5.
func NewMigrator(databaseURL string) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").With("operation", "create migration source").Wrap(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(databaseURL))
	if err != nil {
		_ = source.Close() //nolint:errcheck // init error takes precedence
		return nil, oops.Code("MIGRATION_INIT_FAILED").With("operation", "initialize migrator").Wrap(err)
	}

	return &Migrator{m: m}, nil
}

func migrateURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(databaseURL, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

// skipNoChange treats migrate.ErrNoChange as success.
func skipNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	if err := skipNoChange(m.m.Up()); err != nil {
		return oops.Code("MIGRATION_UP_FAILED").Wrap(err)
	}
	return nil
}

// Down rolls every migration back, dropping all LexiClass tables.
func (m *Migrator) Down() error {
	if err := skipNoChange(m.m.Down()); err != nil {
		return oops.Code("MIGRATION_DOWN_FAILED").Wrap(err)
	}
	return nil
}

// Steps applies n migrations; negative n rolls back.
func (m *Migrator) Steps(n int) error {
	if err := skipNoChange(m.m.Steps(n)); err != nil {
		return oops.Code("MIGRATION_STEPS_FAILED").With("steps", n).Wrap(err)
	}
	return nil
}

// Version returns the applied version and whether the last migration failed
// partway. A fresh database reports version 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	return version, dirty, nil
}

// Force marks version as applied without running it, clearing the dirty flag.
func (m *Migrator) Force(version int) error {
	if version < 0 {
		return oops.Code("INVALID_VERSION").Errorf("version must be non-negative, got %d", version)
	}
	if err := m.m.Force(version); err != nil {
		return oops.Code("MIGRATION_FORCE_FAILED").With("version", version).Wrap(err)
	}
	return nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr == nil && dbErr == nil {
		return nil
	}

	component := "both"
	switch {
	case dbErr == nil:
		component = "source"
	case srcErr == nil:
		component = "database"
	}
	return oops.Code("MIGRATION_CLOSE_FAILED").With("component", component).Wrap(errors.Join(srcErr, dbErr))
}

// PendingMigrations returns the versions Up would apply, ascending.
func (m *Migrator) PendingMigrations() ([]uint, error) {
	_, pending, err := m.split("get pending migrations")
	return pending, err
}

// AppliedMigrations returns the versions already applied, ascending.
func (m *Migrator) AppliedMigrations() ([]uint, error) {
	applied, _, err := m.split("get applied migrations")
	return applied, err
}

func (m *Migrator) split(operation string) (applied, pending []uint, err error) {
	current, _, err := m.Version()
	if err != nil {
		return nil, nil, oops.With("operation", operation).Wrap(err)
	}
	applied, pending, err = partition(current)
	if err != nil {
		return nil, nil, oops.With("operation", operation).Wrap(err)
	}
	return applied, pending, nil
}

// partition splits the embedded versions around current. Either side is nil
// when empty.
func partition(current uint) (applied, pending []uint, err error) {
	files, err := catalog()
	if err != nil {
		return nil, nil, err
	}
	for _, f := range files {
		if f.version <= current {
			applied = append(applied, f.version)
		} else {
			pending = append(pending, f.version)
		}
	}
	return applied, pending, nil
}

// Status reports the schema state from a single version read.
func (m *Migrator) Status() (MigrationStatus, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return MigrationStatus{}, oops.With("operation", "get migration status").Wrap(err)
	}
	applied, pending, err := partition(version)
	if err != nil {
		return MigrationStatus{}, err
	}
	name, err := MigrationName(version)
	if err != nil {
		return MigrationStatus{}, err
	}
	return MigrationStatus{
		Version: version,
		Name:    name,
		Dirty:   dirty,
		Applied: applied,
		Pending: pending,
	}, nil
}

// MigrationName returns the NNNNNN_name of version, or "" when no embedded
// migration has that version.
func MigrationName(version uint) (string, error) {
	files, err := catalog()
	if err != nil {
		return "", err
	}
	i, found := slices.BinarySearchFunc(files, version, func(f migrationFile, v uint) int {
		return cmp.Compare(f.version, v)
	})
	if !found {
		return "", nil
	}
	return files[i].name, nil
}

// allMigrationVersions returns the embedded versions, ascending, in a slice
// the caller owns.
func allMigrationVersions() ([]uint, error) {
	files, err := catalog()
	if err != nil {
		return nil, err
	}
	out := make([]uint, len(files))
	for i, f := range files {
		out[i] = f.version
	}
	return out, nil
}

// scanMigrations parses every NNNNNN_name.up.sql file in the embedded FS.
// Files with another shape are logged and skipped.
func scanMigrations() ([]migrationFile, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, oops.Code("MIGRATION_LIST_FAILED").With("operation", "read migrations dir").Wrap(err)
	}

	var files []migrationFile
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".up.sql")
		if !ok {
			continue
		}
		prefix, _, _ := strings.Cut(name, "_")
		v, err := strconv.ParseUint(prefix, 10, 0)
		if err != nil || len(prefix) != 6 {
			slog.Warn("skipping migration with unexpected file name",
				"filename", entry.Name(),
				"expected_format", "NNNNNN_name.up.sql")
			continue
		}
		files = append(files, migrationFile{version: uint(v), name: name})
	}

	slices.SortFunc(files, func(a, b migrationFile) int { return cmp.Compare(a.version, b.version) })
	files = slices.CompactFunc(files, func(a, b migrationFile) bool { return a.version == b.version })
	return files, nil
}
