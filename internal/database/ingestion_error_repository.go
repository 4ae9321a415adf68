package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/datagate/datagate/internal/models"
	"github.com/google/uuid"
)

// IngestionErrorRepository persists fatal source run failures.
type IngestionErrorRepository struct {
	db *sql.DB
}

// NewIngestionErrorRepository creates a repository over db.
func NewIngestionErrorRepository(db *sql.DB) *IngestionErrorRepository {
	return &IngestionErrorRepository{db: db}
}

// RecordIngestionError stores e, generating an id and timestamp when missing.
func (r *IngestionErrorRepository) RecordIngestionError(ctx context.Context, e models.IngestionError) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ingestion_errors (id, source, error_type, url, error_msg, metadata, created_at, resolved, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			error_msg = EXCLUDED.error_msg,
			metadata = EXCLUDED.metadata
	`,
		e.ID,
		e.Source,
		e.ErrorType,
		nullString(e.URL),
		e.ErrorMsg,
		nullString(e.Metadata),
		e.CreatedAt,
		e.Resolved,
		e.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store ingestion error: %w", err)
	}
	return nil
}

const ingestionErrorColumns = `id, source, error_type, url, error_msg, metadata, created_at, resolved, resolved_at`

// List returns the most recent errors, optionally only unresolved ones.
func (r *IngestionErrorRepository) List(ctx context.Context, limit int, unresolvedOnly bool) ([]models.IngestionError, error) {
	query := `SELECT ` + ingestionErrorColumns + ` FROM ingestion_errors`
	if unresolvedOnly {
		query += " WHERE resolved = FALSE"
	}
	query += " ORDER BY created_at DESC LIMIT $1"

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingestion errors: %w", err)
	}
	defer rows.Close()

	var out []models.IngestionError
	for rows.Next() {
		e, err := scanIngestionError(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetByID returns the error with id, or nil when none exists.
func (r *IngestionErrorRepository) GetByID(ctx context.Context, id string) (*models.IngestionError, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ingestionErrorColumns+` FROM ingestion_errors WHERE id = $1`, id)
	e, err := scanIngestionError(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// MarkResolved marks an error as resolved.
func (r *IngestionErrorRepository) MarkResolved(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE ingestion_errors
		SET resolved = TRUE, resolved_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

// CountUnresolved returns the number of unresolved errors.
func (r *IngestionErrorRepository) CountUnresolved(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingestion_errors WHERE resolved = FALSE`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unresolved errors: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIngestionError(row rowScanner) (models.IngestionError, error) {
	var e models.IngestionError
	var url, metadata sql.NullString
	var resolvedAt sql.NullTime

	if err := row.Scan(&e.ID, &e.Source, &e.ErrorType, &url, &e.ErrorMsg, &metadata, &e.CreatedAt, &e.Resolved, &resolvedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("failed to scan ingestion error: %w", err)
	}
	e.URL = url.String
	e.Metadata = metadata.String
	if resolvedAt.Valid {
		e.ResolvedAt = &resolvedAt.Time
	}
	return e, nil
}
