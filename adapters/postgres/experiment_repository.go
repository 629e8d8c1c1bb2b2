package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"gounlearn/domain/attack"
	"gounlearn/domain/core"
	"gounlearn/domain/experiment"
	"gounlearn/ports"

	"github.com/jmoiron/sqlx"
)

// experimentRepository implements the ExperimentRepository interface.
// Queries use ? placeholders and are rebound for the connected driver.
type experimentRepository struct {
	db *sqlx.DB
}

// NewExperimentRepository creates a new experiment repository
func NewExperimentRepository(db *sqlx.DB) ports.ExperimentRepository {
	return &experimentRepository{db: db}
}

type sampleRow struct {
	Group string  `db:"sample_group"`
	Score float64 `db:"score"`
}

type metricRow struct {
	Threshold   float64 `db:"threshold"`
	AttackScore float64 `db:"attack_score"`
	FPR         float64 `db:"fpr"`
	FNR         float64 `db:"fnr"`
}

const selectExperiment = `SELECT
	e.id, e.name, e.description, e.source, e.fingerprint, e.created_at,
	(SELECT COUNT(*) FROM scored_samples s WHERE s.experiment_id = e.id) AS sample_count,
	(SELECT COUNT(*) FROM metric_samples m WHERE m.experiment_id = e.id) AS metric_count
FROM experiments e`

// Create inserts the experiment and its samples in one transaction
func (r *experimentRepository) Create(ctx context.Context, exp *experiment.Experiment, samples []attack.ScoredSample, metrics []attack.MetricSample) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO experiments (
		id, name, description, source, fingerprint, created_at
	) VALUES (?, ?, ?, ?, ?, ?)`),
		exp.ID, exp.Name, exp.Description, exp.Source, exp.Fingerprint, exp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create experiment: %w", err)
	}

	if err = insertSamples(ctx, tx, exp.ID, samples); err != nil {
		return err
	}
	if err = insertMetrics(ctx, tx, exp.ID, metrics); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit experiment: %w", err)
	}
	exp.SampleCount, exp.MetricCount = len(samples), len(metrics)
	return nil
}

func insertSamples(ctx context.Context, tx *sqlx.Tx, id core.ExperimentID, samples []attack.ScoredSample) error {
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(
		"INSERT INTO scored_samples (experiment_id, sample_group, ordinal, score) VALUES (?, ?, ?, ?)"))
	if err != nil {
		return fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	ordinals := map[attack.Group]int{}
	for _, s := range samples {
		if _, err := stmt.ExecContext(ctx, id, string(s.Group), ordinals[s.Group], s.Score); err != nil {
			return fmt.Errorf("failed to insert sample: %w", err)
		}
		ordinals[s.Group]++
	}
	return nil
}

func insertMetrics(ctx context.Context, tx *sqlx.Tx, id core.ExperimentID, metrics []attack.MetricSample) error {
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(
		"INSERT INTO metric_samples (experiment_id, ordinal, threshold, attack_score, fpr, fnr) VALUES (?, ?, ?, ?, ?, ?)"))
	if err != nil {
		return fmt.Errorf("failed to prepare metric insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range metrics {
		if _, err := stmt.ExecContext(ctx, id, i, m.Threshold, m.AttackScore, m.FalsePositiveRate, m.FalseNegativeRate); err != nil {
			return fmt.Errorf("failed to insert metric sample: %w", err)
		}
	}
	return nil
}

// GetByID retrieves an experiment with its sample counts
func (r *experimentRepository) GetByID(ctx context.Context, id core.ExperimentID) (*experiment.Experiment, error) {
	var exp experiment.Experiment
	err := r.db.GetContext(ctx, &exp, r.db.Rebind(selectExperiment+" WHERE e.id = ?"), id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, core.NewNotFoundError("experiment", id.String())
		}
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}
	return &exp, nil
}

// Latest returns the most recently created experiment
func (r *experimentRepository) Latest(ctx context.Context) (*experiment.Experiment, error) {
	var exp experiment.Experiment
	err := r.db.GetContext(ctx, &exp, selectExperiment+" ORDER BY e.created_at DESC, e.id DESC LIMIT 1")
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrExperimentNotFound
		}
		return nil, fmt.Errorf("failed to get latest experiment: %w", err)
	}
	return &exp, nil
}

// List returns experiments newest first
func (r *experimentRepository) List(ctx context.Context, limit, offset int) ([]*experiment.Experiment, error) {
	if limit <= 0 {
		limit = 50
	}
	var exps []*experiment.Experiment
	err := r.db.SelectContext(ctx, &exps,
		r.db.Rebind(selectExperiment+" ORDER BY e.created_at DESC, e.id DESC LIMIT ? OFFSET ?"), limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	return exps, nil
}

// Delete removes an experiment and its samples. Children are deleted
// explicitly since SQLite does not enforce ON DELETE CASCADE by default.
func (r *experimentRepository) Delete(ctx context.Context, id core.ExperimentID) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, q := range []string{
		"DELETE FROM scored_samples WHERE experiment_id = ?",
		"DELETE FROM metric_samples WHERE experiment_id = ?",
	} {
		if _, err = tx.ExecContext(ctx, tx.Rebind(q), id); err != nil {
			return fmt.Errorf("failed to delete experiment samples: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM experiments WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		err = core.NewNotFoundError("experiment", id.String())
		return err
	}
	return tx.Commit()
}

// Samples returns the experiment's scores, group A first, in insertion order
func (r *experimentRepository) Samples(ctx context.Context, id core.ExperimentID) ([]attack.ScoredSample, error) {
	var rows []sampleRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(
		"SELECT sample_group, score FROM scored_samples WHERE experiment_id = ? ORDER BY sample_group, ordinal"), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get samples: %w", err)
	}

	samples := make([]attack.ScoredSample, 0, len(rows))
	for _, row := range rows {
		g, err := attack.ParseGroup(row.Group)
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", id, err)
		}
		samples = append(samples, attack.ScoredSample{Score: row.Score, Group: g})
	}
	return samples, nil
}

// Metrics returns the experiment's metric grid in stored order
func (r *experimentRepository) Metrics(ctx context.Context, id core.ExperimentID) ([]attack.MetricSample, error) {
	var rows []metricRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(
		"SELECT threshold, attack_score, fpr, fnr FROM metric_samples WHERE experiment_id = ? ORDER BY ordinal"), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get metric samples: %w", err)
	}

	metrics := make([]attack.MetricSample, len(rows))
	for i, row := range rows {
		metrics[i] = attack.MetricSample{
			Threshold:         row.Threshold,
			AttackScore:       row.AttackScore,
			FalsePositiveRate: row.FPR,
			FalseNegativeRate: row.FNR,
		}
	}
	return metrics, nil
}
