package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gounlearn/domain/attack"
	"gounlearn/domain/core"
)

func writeWorkbook(t *testing.T, sheets map[string][][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			addr, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			require.NoError(t, f.SetSheetRow(name, addr, &r))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))

	path := filepath.Join(t.TempDir(), "experiment.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadLongSamplesAndMetrics(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"samples": {
			{"Group", "Score"},
			{"retrain", 1.5},
			{"unlearn", -0.25},
			{"A", 3},
		},
		"metrics": {
			{"fnr", "threshold", "attack", "fpr"},
			{0.1, 0, 0.55, 0.8},
			{0.3, 0.5, 0.6, 0.5},
		},
	})
	r := NewDataReader(DefaultExcelConfig(path))
	ctx := context.Background()

	samples, err := r.Samples(ctx)
	require.NoError(t, err)
	assert.Equal(t, []attack.ScoredSample{
		{Score: 1.5, Group: attack.GroupA},
		{Score: -0.25, Group: attack.GroupB},
		{Score: 3, Group: attack.GroupA},
	}, samples)

	metrics, err := r.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []attack.MetricSample{
		{Threshold: 0, AttackScore: 0.55, FalsePositiveRate: 0.8, FalseNegativeRate: 0.1},
		{Threshold: 0.5, AttackScore: 0.6, FalsePositiveRate: 0.5, FalseNegativeRate: 0.3},
	}, metrics)
	assert.Equal(t, "experiment.xlsx", r.Name())
}

func TestReadWideSamplesWithoutMetricsSheet(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"samples": {
			{"B", "A"},
			{0.5, 2},
			{0.75, nil},
			{1, nil},
		},
	})
	r := NewDataReader(DefaultExcelConfig(path))

	samples, err := r.Samples(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []attack.ScoredSample{
		{Score: 2, Group: attack.GroupA},
		{Score: 0.5, Group: attack.GroupB},
		{Score: 0.75, Group: attack.GroupB},
		{Score: 1, Group: attack.GroupB},
	}, samples)

	metrics, err := r.Metrics(context.Background())
	require.NoError(t, err)
	assert.Nil(t, metrics)
}

func TestMalformedWorkbook(t *testing.T) {
	tests := []struct {
		name  string
		sheet [][]interface{}
	}{
		{"header only", [][]interface{}{{"group", "score"}}},
		{"bad group", [][]interface{}{{"group", "score"}, {"C", 1}}},
		{"bad score", [][]interface{}{{"group", "score"}, {"A", "high"}}},
		{"no group columns", [][]interface{}{{"x", "y"}, {1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeWorkbook(t, map[string][][]interface{}{"samples": tt.sheet})
			_, err := NewDataReader(DefaultExcelConfig(path)).Samples(context.Background())
			assert.ErrorIs(t, err, core.ErrMalformedSource)
		})
	}
}

func TestMetricsSheetMissingColumn(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"samples": {{"A"}, {1}},
		"metrics": {{"threshold", "attack", "fpr"}, {0, 0.5, 0.5}},
	})
	_, err := NewDataReader(DefaultExcelConfig(path)).Metrics(context.Background())
	assert.ErrorIs(t, err, core.ErrMalformedSource)
}

func TestReadCSVSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.csv")
	require.NoError(t, os.WriteFile(path, []byte("group,score\nA,0.5\nB,1.25\n"), 0o644))
	r := NewDataReader(DefaultExcelConfig(path))

	samples, err := r.Samples(context.Background())
	require.NoError(t, err)
	assert.Len(t, samples, 2)

	metrics, err := r.Metrics(context.Background())
	require.NoError(t, err)
	assert.Nil(t, metrics)
}

func TestMissingFile(t *testing.T) {
	r := NewDataReader(DefaultExcelConfig(filepath.Join(t.TempDir(), "nope.xlsx")))
	_, err := r.Samples(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
