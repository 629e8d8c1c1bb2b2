package migration

import (
	"context"
	"time"

	"gounlearn/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations. The statements are
// written in the subset of SQL shared by PostgreSQL and SQLite so the same
// schema backs the server and the in-memory test store.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createExperimentsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create experiments table")
	}

	if err := r.createScoredSamplesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create scored_samples table")
	}

	if err := r.createMetricSamplesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create metric_samples table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	if err := r.recordVersion(ctx, db); err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}

	return nil
}

func (r *MigrationRunner) createExperimentsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS experiments (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			source VARCHAR(50) NOT NULL DEFAULT '',
			fingerprint VARCHAR(64) NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (r *MigrationRunner) createScoredSamplesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scored_samples (
			experiment_id VARCHAR(64) NOT NULL REFERENCES experiments(id) ON DELETE CASCADE,
			sample_group VARCHAR(8) NOT NULL,
			ordinal INTEGER NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (experiment_id, sample_group, ordinal)
		)
	`)
	return err
}

func (r *MigrationRunner) createMetricSamplesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS metric_samples (
			experiment_id VARCHAR(64) NOT NULL REFERENCES experiments(id) ON DELETE CASCADE,
			ordinal INTEGER NOT NULL,
			threshold DOUBLE PRECISION NOT NULL,
			attack_score DOUBLE PRECISION NOT NULL,
			fpr DOUBLE PRECISION NOT NULL,
			fnr DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (experiment_id, ordinal)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_experiments_created_at ON experiments(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_experiments_fingerprint ON experiments(fingerprint)",
		"CREATE INDEX IF NOT EXISTS idx_metric_samples_threshold ON metric_samples(experiment_id, threshold)",
	}

	for _, indexSQL := range indexes {
		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return err
		}
	}
	return nil
}

func (r *MigrationRunner) recordVersion(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(32) PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)
	`); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx,
		db.Rebind("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?) ON CONFLICT (version) DO NOTHING"),
		r.version, time.Now().UTC())
	return err
}

// AppliedVersions lists the recorded schema versions
func AppliedVersions(ctx context.Context, db *sqlx.DB) ([]string, error) {
	var versions []string
	if err := db.SelectContext(ctx, &versions, "SELECT version FROM schema_migrations ORDER BY version"); err != nil {
		return nil, errors.DatabaseError("failed to list schema versions", err)
	}
	return versions, nil
}
