package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gounlearn/domain/attack"
	"gounlearn/domain/core"
	"gounlearn/domain/experiment"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func fixture() ([]attack.ScoredSample, []attack.MetricSample) {
	samples := []attack.ScoredSample{
		{Score: 1.5, Group: attack.GroupB},
		{Score: 0.25, Group: attack.GroupA},
		{Score: -1, Group: attack.GroupB},
		{Score: 3.75, Group: attack.GroupA},
	}
	metrics := []attack.MetricSample{
		{Threshold: 0, AttackScore: 0.5, FalsePositiveRate: 0.9, FalseNegativeRate: 0.1},
		{Threshold: 1, AttackScore: 0.7, FalsePositiveRate: 0.4, FalseNegativeRate: 0.2},
	}
	return samples, metrics
}

func TestExperimentRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewExperimentRepository(openTestDB(t))
	samples, metrics := fixture()

	exp := experiment.New("cifar forget-10", experiment.SourceWorkbook)
	exp.Fingerprint = "abc123"
	require.NoError(t, repo.Create(ctx, exp, samples, metrics))
	assert.Equal(t, 4, exp.SampleCount)

	got, err := repo.GetByID(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, exp.Name, got.Name)
	assert.Equal(t, experiment.SourceWorkbook, got.Source)
	assert.Equal(t, "abc123", got.Fingerprint)
	assert.Equal(t, 4, got.SampleCount)
	assert.Equal(t, 2, got.MetricCount)

	gotSamples, err := repo.Samples(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, []attack.ScoredSample{
		{Score: 0.25, Group: attack.GroupA},
		{Score: 3.75, Group: attack.GroupA},
		{Score: 1.5, Group: attack.GroupB},
		{Score: -1, Group: attack.GroupB},
	}, gotSamples)

	gotMetrics, err := repo.Metrics(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, metrics, gotMetrics)
}

func TestExperimentNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewExperimentRepository(openTestDB(t))

	_, err := repo.GetByID(ctx, core.ExperimentID("missing"))
	assert.True(t, core.IsNotFoundError(err))

	_, err = repo.Latest(ctx)
	assert.ErrorIs(t, err, core.ErrExperimentNotFound)

	assert.True(t, core.IsNotFoundError(repo.Delete(ctx, core.ExperimentID("missing"))))
}

func TestLatestListAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewExperimentRepository(openTestDB(t))
	samples, metrics := fixture()

	older := experiment.New("older", experiment.SourceResultFile)
	older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := experiment.New("newer", experiment.SourceGenerated)
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	require.NoError(t, repo.Create(ctx, older, samples, metrics))
	require.NoError(t, repo.Create(ctx, newer, samples, nil))

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
	assert.Zero(t, latest.MetricCount)

	list, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Name)
	assert.Equal(t, "older", list[1].Name)

	require.NoError(t, repo.Delete(ctx, newer.ID))
	remaining, err := repo.Samples(ctx, newer.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	latest, err = repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, older.ID, latest.ID)
}

func TestCreateRollsBackOnDuplicateID(t *testing.T) {
	ctx := context.Background()
	repo := NewExperimentRepository(openTestDB(t))
	samples, metrics := fixture()

	exp := experiment.New("first", experiment.SourceManual)
	require.NoError(t, repo.Create(ctx, exp, samples, metrics))

	dup := *exp
	dup.Name = "second"
	require.Error(t, repo.Create(ctx, &dup, samples[:1], nil))

	got, err := repo.GetByID(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)
	assert.Equal(t, 4, got.SampleCount)
}
