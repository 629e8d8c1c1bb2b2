package testkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gounlearn/domain/attack"
)

func TestScoreGenerator_Reproducible(t *testing.T) {
	ctx := context.Background()
	first, err := NewScoreGenerator(DefaultScoreConfig()).Samples(ctx)
	require.NoError(t, err)
	second, err := NewScoreGenerator(DefaultScoreConfig()).Samples(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	cfg := DefaultScoreConfig()
	cfg.Seed = 7
	other, err := NewScoreGenerator(cfg).Samples(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestScoreGenerator_Groups(t *testing.T) {
	cfg := DefaultScoreConfig()
	cfg.CountA, cfg.CountB = 500, 300
	gen := NewScoreGenerator(cfg)

	samples, err := gen.Samples(context.Background())
	require.NoError(t, err)
	assert.Len(t, attack.Scores(samples, attack.GroupA), 500)
	assert.Len(t, attack.Scores(samples, attack.GroupB), 300)

	summaries := attack.Summarize(samples)
	require.Len(t, summaries, 2)
	assert.Greater(t, summaries[0].Mean, summaries[1].Mean, "forget set scores higher on average")

	metrics, err := gen.Metrics(context.Background())
	require.NoError(t, err)
	assert.Nil(t, metrics)
	assert.Equal(t, "synthetic (seed 42)", gen.Name())
}

func TestScoreGenerator_FullyUnlearned(t *testing.T) {
	cfg := DefaultScoreConfig()
	cfg.UnlearnedFraction = 1
	cfg.CountA, cfg.CountB = 2000, 2000

	samples, err := NewScoreGenerator(cfg).Samples(context.Background())
	require.NoError(t, err)
	summaries := attack.Summarize(samples)
	assert.InDelta(t, summaries[0].Mean, summaries[1].Mean, 0.15)
}

func TestScoreGenerator_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewScoreGenerator(DefaultScoreConfig()).Samples(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
