// Package postgres provides a PostgreSQL implementation of the storage interface.
// This is intended for self-hosted deployments.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/shipitai/filereviewer/storage"
)

// PostgreSQL provides storage operations using PostgreSQL.
type PostgreSQL struct {
	db *sql.DB
}

// New creates a new PostgreSQL storage instance.
func New(db *sql.DB) *PostgreSQL {
	return &PostgreSQL{db: db}
}

// NewFromDSN creates a new PostgreSQL storage instance from a connection string.
func NewFromDSN(ctx context.Context, dsn string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &PostgreSQL{db: db}, nil
}

// Close closes the database connection.
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

// Migrate creates the required database tables.
func (p *PostgreSQL) Migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS installations (
			installation_id BIGINT PRIMARY KEY,
			org_login TEXT NOT NULL,
			installed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS deliveries (
			delivery_id TEXT PRIMARY KEY,
			received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS runs (
			id SERIAL PRIMARY KEY,
			delivery_id TEXT NOT NULL,
			installation_id BIGINT NOT NULL,
			owner TEXT NOT NULL,
			repo TEXT NOT NULL,
			pr_number INTEGER NOT NULL,
			head_sha TEXT NOT NULL,
			state TEXT NOT NULL,
			files JSONB,
			review_id BIGINT,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(delivery_id)
		);

		CREATE INDEX IF NOT EXISTS idx_runs_pr ON runs(owner, repo, pr_number);
	`

	_, err := p.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// ClaimDelivery inserts the delivery ID and reports whether it was new.
func (p *PostgreSQL) ClaimDelivery(ctx context.Context, deliveryID string) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO deliveries (delivery_id) VALUES ($1) ON CONFLICT (delivery_id) DO NOTHING`,
		deliveryID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim delivery: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim delivery: %w", err)
	}
	return n == 1, nil
}

// SaveRun stores a run record in PostgreSQL.
func (p *PostgreSQL) SaveRun(ctx context.Context, run *storage.RunRecord) error {
	query := `
		INSERT INTO runs (delivery_id, installation_id, owner, repo, pr_number, head_sha, state, files, review_id, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (delivery_id) DO UPDATE SET
			head_sha = EXCLUDED.head_sha,
			state = EXCLUDED.state,
			files = EXCLUDED.files,
			review_id = EXCLUDED.review_id,
			error = EXCLUDED.error
	`

	_, err := p.db.ExecContext(ctx, query,
		run.DeliveryID,
		run.InstallationID,
		run.Owner,
		run.Repo,
		run.PRNumber,
		run.HeadSHA,
		run.State,
		filesToJSON(run.Files),
		run.ReviewID,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}

	return nil
}

// ListRunsForPR retrieves all runs for a pull request, oldest first.
func (p *PostgreSQL) ListRunsForPR(ctx context.Context, owner, repo string, prNumber int) ([]*storage.RunRecord, error) {
	query := `
		SELECT delivery_id, installation_id, owner, repo, pr_number, head_sha, state, files, review_id, error, created_at
		FROM runs
		WHERE owner = $1 AND repo = $2 AND pr_number = $3
		ORDER BY created_at ASC
	`

	rows, err := p.db.QueryContext(ctx, query, owner, repo, prNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*storage.RunRecord
	for rows.Next() {
		var run storage.RunRecord
		var filesJSON, runErr sql.NullString
		var reviewID sql.NullInt64
		var createdAt time.Time

		if err := rows.Scan(
			&run.DeliveryID,
			&run.InstallationID,
			&run.Owner,
			&run.Repo,
			&run.PRNumber,
			&run.HeadSHA,
			&run.State,
			&filesJSON,
			&reviewID,
			&runErr,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.Files = filesFromJSON(filesJSON.String)
		run.ReviewID = reviewID.Int64
		run.Error = runErr.String
		run.CreatedAt = createdAt.Format(time.RFC3339)
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// SaveInstallation stores a new installation or refreshes its login.
func (p *PostgreSQL) SaveInstallation(ctx context.Context, install *storage.Installation) error {
	query := `
		INSERT INTO installations (installation_id, org_login, installed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (installation_id) DO UPDATE SET
			org_login = EXCLUDED.org_login,
			updated_at = NOW()
	`

	installedAt := time.Now()
	if install.InstalledAt != "" {
		if t, err := time.Parse(time.RFC3339, install.InstalledAt); err == nil {
			installedAt = t
		}
	}

	_, err := p.db.ExecContext(ctx, query, install.InstallationID, install.OrgLogin, installedAt)
	if err != nil {
		return fmt.Errorf("failed to save installation: %w", err)
	}

	return nil
}

// GetInstallation retrieves an installation, or nil if it is unknown.
func (p *PostgreSQL) GetInstallation(ctx context.Context, installationID int64) (*storage.Installation, error) {
	query := `
		SELECT installation_id, org_login, installed_at
		FROM installations
		WHERE installation_id = $1
	`

	var install storage.Installation
	var installedAt time.Time

	err := p.db.QueryRowContext(ctx, query, installationID).Scan(
		&install.InstallationID,
		&install.OrgLogin,
		&installedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get installation: %w", err)
	}

	install.InstalledAt = installedAt.Format(time.RFC3339)

	return &install, nil
}

// Verify PostgreSQL implements Storage at compile time.
var _ storage.Storage = (*PostgreSQL)(nil)
