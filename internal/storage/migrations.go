package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/student-auth/studentauth/internal/errors"
	"github.com/student-auth/studentauth/migrations"
)

// MigrationRunner applies the embedded schema migrations for one dialect.
type MigrationRunner struct {
	db      *sql.DB
	dialect Dialect
}

// NewMigrationRunner creates a new migration runner.
func NewMigrationRunner(db *sql.DB, dialect Dialect) *MigrationRunner {
	return &MigrationRunner{db: db, dialect: dialect}
}

// Run executes all pending migrations and returns the names it applied.
// The server refuses to start when this fails.
func (r *MigrationRunner) Run(ctx context.Context) ([]string, error) {
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := r.getAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	pending, err := r.getMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to read migration files: %w", err)
	}

	var ran []string
	for _, m := range pending {
		if applied[m.version] {
			continue
		}
		if err := r.applyMigration(ctx, m); err != nil {
			return ran, errors.NewMigrationFailed(m.name, err)
		}
		ran = append(ran, m.name)
	}
	return ran, nil
}

type migration struct {
	version string
	name    string
	content []byte
}

func (r *MigrationRunner) ensureMigrationsTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)`)
	return err
}

func (r *MigrationRunner) getAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (r *MigrationRunner) getMigrationFiles() ([]migration, error) {
	dir := r.dialect.Name
	entries, err := fs.ReadDir(migrations.FS, dir)
	if err != nil {
		return nil, err
	}

	var list []migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		// e.g. "000001_create_students.up.sql"
		parts := strings.SplitN(name, "_", 2)
		if len(parts) < 2 {
			continue
		}

		content, err := fs.ReadFile(migrations.FS, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		list = append(list, migration{
			version: parts[0],
			name:    strings.TrimSuffix(name, ".up.sql"),
			content: content,
		})
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].version < list[j].version
	})
	return list, nil
}

func (r *MigrationRunner) applyMigration(ctx context.Context, m migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(string(m.content)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		r.dialect.Rebind(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`),
		m.version, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

// splitStatements splits a migration file on ';'. Migration files hold
// plain DDL with no semicolons inside literals.
func splitStatements(content string) []string {
	var stmts []string
	for _, s := range strings.Split(content, ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
