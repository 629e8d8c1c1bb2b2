package resultfile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gounlearn/domain/attack"
	"gounlearn/domain/core"
)

func writeDoc(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run-17.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestGroupedScoresAndMetricRows(t *testing.T) {
	path := writeDoc(t, `{
		"name": "resnet forget-class 3",
		"scores": {"unlearn": [0.5, 1.5], "retrain": [2.25], "seed": [1]},
		"metrics": [
			{"threshold": 0, "attack": 0.5, "fpr": 1, "fnr": 0},
			{"t": 1, "attack_score": 0.75, "false_positive_rate": 0.5, "false_negative_rate": 0}
		]
	}`)
	r := NewResultReader(DefaultResultConfig(path))
	ctx := context.Background()

	assert.Equal(t, "resnet forget-class 3", r.Name())

	samples, err := r.Samples(ctx)
	require.NoError(t, err)
	assert.Equal(t, []attack.ScoredSample{
		{Score: 2.25, Group: attack.GroupA},
		{Score: 0.5, Group: attack.GroupB},
		{Score: 1.5, Group: attack.GroupB},
	}, samples)

	metrics, err := r.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []attack.MetricSample{
		{Threshold: 0, AttackScore: 0.5, FalsePositiveRate: 1, FalseNegativeRate: 0},
		{Threshold: 1, AttackScore: 0.75, FalsePositiveRate: 0.5, FalseNegativeRate: 0},
	}, metrics)
}

func TestRecordScoresAndColumnarMetrics(t *testing.T) {
	path := writeDoc(t, `{
		"result": {
			"samples": [{"group": "A", "score": -1}, {"group": "B", "score": 3}],
			"grid": {"thresholds": [0, 0.5], "attack": [0.5, 0.6], "fpr": [0.9, 0.7], "fnr": [0.1, 0.1]}
		}
	}`)
	cfg := DefaultResultConfig(path)
	cfg.ScoresPath = "result.samples"
	cfg.MetricsPath = "result.grid"
	r := NewResultReader(cfg)

	samples, err := r.Samples(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []attack.ScoredSample{{Score: -1, Group: attack.GroupA}, {Score: 3, Group: attack.GroupB}}, samples)

	metrics, err := r.Metrics(context.Background())
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, 0.5, metrics[1].Threshold)
	assert.Equal(t, 0.6, metrics[1].AttackScore)
	assert.Equal(t, "run-17.json", r.Name())
}

func TestMissingMetricsIsNotAnError(t *testing.T) {
	r := NewResultReader(DefaultResultConfig(writeDoc(t, `{"scores": {"A": [1]}}`)))
	metrics, err := r.Metrics(context.Background())
	require.NoError(t, err)
	assert.Nil(t, metrics)
}

func TestMalformedDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		read func(*ResultReader) error
	}{
		{"invalid json", `{"scores":`, samplesErr},
		{"no scores", `{"other": 1}`, samplesErr},
		{"scores scalar", `{"scores": 4}`, samplesErr},
		{"non numeric", `{"scores": {"A": [1, "x"]}}`, samplesErr},
		{"bad record group", `{"scores": [{"group": "Z", "score": 1}]}`, samplesErr},
		{"ragged columns", `{"scores": {}, "metrics": {"threshold": [0, 1], "attack": [1], "fpr": [1, 1], "fnr": [0, 0]}}`, metricsErr},
		{"missing fnr", `{"scores": {}, "metrics": [{"threshold": 0, "attack": 1, "fpr": 1}]}`, metricsErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResultReader(DefaultResultConfig(writeDoc(t, tt.doc)))
			assert.ErrorIs(t, tt.read(r), core.ErrMalformedSource)
		})
	}
}

func samplesErr(r *ResultReader) error {
	_, err := r.Samples(context.Background())
	return err
}

func metricsErr(r *ResultReader) error {
	_, err := r.Metrics(context.Background())
	return err
}

func TestFetchFromURL(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		auth = req.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"scores": {"A": [1, 2], "B": [3]}}`))
	}))
	defer srv.Close()

	cfg := DefaultResultConfig(srv.URL + "/runs/17")
	cfg.AuthToken = "secret"
	r := NewResultReader(cfg)

	samples, err := r.Samples(context.Background())
	require.NoError(t, err)
	assert.Len(t, samples, 3)
	assert.Equal(t, "Bearer secret", auth)
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "no such run", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewResultReader(DefaultResultConfig(srv.URL)).Samples(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
