package container

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gounlearn/domain/attack"
	"gounlearn/domain/experiment"
	"gounlearn/internal/config"
	"gounlearn/internal/testkit"
)

func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "DB_DRIVER", "EXPERIMENT_ID", "RESULTS_FILE", "EXCEL_FILE"} {
		t.Setenv(key, "")
	}
	for key, value := range env {
		t.Setenv(key, value)
	}
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestLoadDataset_BeforeInit(t *testing.T) {
	c, err := New(loadConfig(t, nil))
	require.NoError(t, err)
	_, err = c.LoadDataset(context.Background())
	assert.Error(t, err)
}

func TestContainer_Storeless(t *testing.T) {
	ctx := context.Background()
	c, err := New(loadConfig(t, map[string]string{"SYNTHETIC_SEED": "5"}))
	require.NoError(t, err)
	require.NoError(t, c.Init(ctx))
	defer c.Shutdown(ctx)

	assert.Nil(t, c.DB)
	assert.Nil(t, c.Experiments)

	ds, err := c.LoadDataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, "synthetic (seed 5)", ds.Name)
	assert.Equal(t, ds.Name, c.Dataset().Name)

	bins, err := c.Coordinator.Bins(attack.GroupA)
	require.NoError(t, err)
	assert.NotEmpty(t, bins)
}

func TestContainer_LoadsNewestStoredExperiment(t *testing.T) {
	ctx := context.Background()
	c, err := New(loadConfig(t, map[string]string{
		"DB_DRIVER":    "sqlite",
		"DATABASE_URL": filepath.Join(t.TempDir(), "experiments.db"),
	}))
	require.NoError(t, err)
	require.NoError(t, c.Init(ctx))
	defer c.Shutdown(ctx)
	require.NotNil(t, c.DB)

	gen := testkit.NewScoreGenerator(testkit.DefaultScoreConfig())
	exp, err := c.Datasets.Import(ctx, gen, experiment.SourceGenerated)
	require.NoError(t, err)

	ds, err := c.LoadDataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, exp.Name, ds.Name)
	assert.Len(t, ds.Samples, exp.SampleCount)
}
