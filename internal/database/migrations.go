package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Migration is one SQL file in the migrations directory.
type Migration struct {
	Version string
	Path    string
}

// PendingMigrations lists *.sql files in dir that are not in applied, sorted
// by file name.
func PendingMigrations(dir string, applied map[string]bool) ([]Migration, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migration files: %w", err)
	}
	sort.Strings(files)

	var pending []Migration
	for _, file := range files {
		version := filepath.Base(file)
		if applied[version] {
			continue
		}
		pending = append(pending, Migration{Version: version, Path: file})
	}
	return pending, nil
}

// RunMigrations applies pending migrations from dir, each in its own
// transaction, and records them in schema_migrations.
func RunMigrations(ctx context.Context, db *sql.DB, dir string, logger *slog.Logger) (int, error) {
	logger.Info("checking for pending database migrations", "dir", dir)

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return 0, err
	}
	pending, err := PendingMigrations(dir, applied)
	if err != nil {
		return 0, err
	}

	for _, m := range pending {
		logger.Info("applying migration", "file", m.Version)
		if err := applyMigration(ctx, db, m); err != nil {
			return 0, err
		}
	}

	if len(pending) == 0 {
		logger.Info("no pending migrations found")
	} else {
		logger.Info("migrations completed", "count", len(pending))
	}
	return len(pending), nil
}

func appliedMigrations(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	content, err := os.ReadFile(m.Path)
	if err != nil {
		return fmt.Errorf("failed to read migration %s: %w", m.Version, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", m.Version, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.Version, err)
	}
	return nil
}
