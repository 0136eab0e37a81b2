package migration

import (
	"context"
	"fmt"
	"log"
	"time"

	"climateprep/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migration is one versioned schema change. Statements must be valid on both
// SQLite and PostgreSQL.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() int
}

// MigrationRunner applies pending migrations in version order and records
// them in schema_migrations. Running it twice is a no-op.
type MigrationRunner struct {
	migrations []Migration
}

// NewRunner creates a runner for the report store migrations
func NewRunner() *MigrationRunner {
	return &MigrationRunner{migrations: reportMigrations()}
}

// Version returns the latest migration version the runner knows
func (r *MigrationRunner) Version() int {
	if len(r.migrations) == 0 {
		return 0
	}
	return r.migrations[len(r.migrations)-1].Version
}

// Run executes all pending migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return errors.DatabaseError("failed to create schema_migrations table", err)
	}

	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return err
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, m := range r.migrations {
		if done[m.Version] {
			continue
		}
		if err := r.apply(ctx, db, m); err != nil {
			return errors.DatabaseError(fmt.Sprintf("migration %d (%s) failed", m.Version, m.Name), err)
		}
		log.Printf("[Migration] applied %d_%s", m.Version, m.Name)
	}
	return nil
}

func (r *MigrationRunner) apply(ctx context.Context, db *sqlx.DB, m Migration) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`),
		m.Version, m.Name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// AppliedVersions lists the recorded migration versions in ascending order
func AppliedVersions(ctx context.Context, db *sqlx.DB) ([]int, error) {
	var versions []int
	if err := db.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations ORDER BY version`); err != nil {
		return nil, errors.DatabaseError("failed to read schema_migrations", err)
	}
	return versions, nil
}

func reportMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_reports",
			Statements: []string{`
				CREATE TABLE IF NOT EXISTS reports (
					id            TEXT PRIMARY KEY,
					filename      TEXT NOT NULL,
					schema_name   TEXT NOT NULL,
					grade         TEXT NOT NULL,
					overall_score DOUBLE PRECISION NOT NULL,
					row_count     INTEGER NOT NULL,
					file_sha256   TEXT NOT NULL,
					payload       TEXT NOT NULL,
					created_at    TEXT NOT NULL
				)
			`},
		},
		{
			Version: 2,
			Name:    "index_reports",
			Statements: []string{
				`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports (created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_reports_schema_name ON reports (schema_name)`,
			},
		},
	}
}
