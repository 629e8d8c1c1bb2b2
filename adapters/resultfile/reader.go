package resultfile

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gounlearn/domain/attack"
	"gounlearn/domain/core"
	"gounlearn/ports"

	"github.com/tidwall/gjson"
)

// ResultReader extracts scores and a metric grid from a JSON result
// document. The document is fetched once and shared by both reads.
//
// Scores may be an object keyed by group name
//
//	{"scores": {"retrain": [..], "unlearn": [..]}}
//
// or an array of records with group and score fields. Metrics may be an
// array of {threshold, attack, fpr, fnr} rows or an object of parallel
// arrays under the same keys.
type ResultReader struct {
	cfg        ResultConfig
	httpClient *http.Client

	once sync.Once
	body []byte
	err  error
}

var _ ports.DatasetSource = (*ResultReader)(nil)

// NewResultReader creates a reader for a file path or URL
func NewResultReader(cfg ResultConfig) *ResultReader {
	return &ResultReader{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the document's title, or the location's base name
func (r *ResultReader) Name() string {
	if body, err := r.load(context.Background()); err == nil && r.cfg.NamePath != "" {
		if name := gjson.GetBytes(body, r.cfg.NamePath); name.Exists() && name.String() != "" {
			return name.String()
		}
	}
	return filepath.Base(r.cfg.Location)
}

// Samples reads the scores section
func (r *ResultReader) Samples(ctx context.Context) ([]attack.ScoredSample, error) {
	body, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	scores := gjson.GetBytes(body, r.cfg.ScoresPath)
	if !scores.Exists() {
		return nil, core.NewMalformedSourceError(r.cfg.Location, fmt.Sprintf("scores path %q not found", r.cfg.ScoresPath))
	}

	switch {
	case scores.IsObject():
		return r.groupedScores(scores)
	case scores.IsArray():
		return r.recordScores(scores)
	default:
		return nil, core.NewMalformedSourceError(r.cfg.Location, fmt.Sprintf("scores path %q is not an array or object", r.cfg.ScoresPath))
	}
}

func (r *ResultReader) groupedScores(scores gjson.Result) ([]attack.ScoredSample, error) {
	byGroup := map[attack.Group][]float64{}
	var err error
	scores.ForEach(func(key, value gjson.Result) bool {
		g, perr := attack.ParseGroup(key.String())
		if perr != nil {
			log.Printf("[ResultReader] Ignoring scores under %q: %v", key.String(), perr)
			return true
		}
		if !value.IsArray() {
			err = core.NewMalformedSourceError(r.cfg.Location, fmt.Sprintf("scores for %q are not an array", key.String()))
			return false
		}
		for _, v := range value.Array() {
			if v.Type != gjson.Number {
				err = core.NewMalformedSourceError(r.cfg.Location, fmt.Sprintf("non-numeric score %s in %q", v.Raw, key.String()))
				return false
			}
			byGroup[g] = append(byGroup[g], v.Float())
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	var samples []attack.ScoredSample
	for _, g := range attack.Groups {
		for _, s := range byGroup[g] {
			samples = append(samples, attack.ScoredSample{Score: s, Group: g})
		}
	}
	return samples, nil
}

func (r *ResultReader) recordScores(scores gjson.Result) ([]attack.ScoredSample, error) {
	records := scores.Array()
	samples := make([]attack.ScoredSample, 0, len(records))
	for i, rec := range records {
		g, err := attack.ParseGroup(rec.Get("group").String())
		if err != nil {
			return nil, core.NewMalformedSourceError(r.cfg.Location, fmt.Sprintf("record %d: %v", i, err))
		}
		score := rec.Get("score")
		if score.Type != gjson.Number {
			return nil, core.NewMalformedSourceError(r.cfg.Location, fmt.Sprintf("record %d: missing numeric score", i))
		}
		samples = append(samples, attack.ScoredSample{Score: score.Float(), Group: g})
	}
	return samples, nil
}

var metricKeys = [4][]string{
	{"threshold", "thresholds", "t"},
	{"attack", "attack_score", "attack_scores"},
	{"fpr", "false_positive_rate"},
	{"fnr", "false_negative_rate"},
}

// Metrics reads the metrics section; a missing section yields no grid
func (r *ResultReader) Metrics(ctx context.Context) ([]attack.MetricSample, error) {
	body, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	metrics := gjson.GetBytes(body, r.cfg.MetricsPath)
	switch {
	case !metrics.Exists():
		return nil, nil
	case metrics.IsArray():
		rows := metrics.Array()
		out := make([]attack.MetricSample, 0, len(rows))
		for i, row := range rows {
			var vals [4]float64
			for k, keys := range metricKeys {
				v, ok := firstNumber(row, keys)
				if !ok {
					return nil, core.NewMalformedSourceError(r.cfg.Location, fmt.Sprintf("metric row %d has no %s", i, keys[0]))
				}
				vals[k] = v
			}
			out = append(out, metricFrom(vals))
		}
		return out, nil
	case metrics.IsObject():
		var cols [4][]gjson.Result
		for k, keys := range metricKeys {
			col, ok := firstArray(metrics, keys)
			if !ok {
				return nil, core.NewMalformedSourceError(r.cfg.Location, fmt.Sprintf("metrics have no %s column", keys[0]))
			}
			cols[k] = col
		}
		n := len(cols[0])
		for _, col := range cols[1:] {
			if len(col) != n {
				return nil, core.NewMalformedSourceError(r.cfg.Location, "metric columns differ in length")
			}
		}
		out := make([]attack.MetricSample, n)
		for i := range out {
			out[i] = metricFrom([4]float64{cols[0][i].Float(), cols[1][i].Float(), cols[2][i].Float(), cols[3][i].Float()})
		}
		return out, nil
	default:
		return nil, core.NewMalformedSourceError(r.cfg.Location, fmt.Sprintf("metrics path %q is not an array or object", r.cfg.MetricsPath))
	}
}

func metricFrom(v [4]float64) attack.MetricSample {
	return attack.MetricSample{
		Threshold:         v[0],
		AttackScore:       v[1],
		FalsePositiveRate: v[2],
		FalseNegativeRate: v[3],
	}
}

func firstNumber(obj gjson.Result, keys []string) (float64, bool) {
	for _, k := range keys {
		if v := obj.Get(k); v.Type == gjson.Number {
			return v.Float(), true
		}
	}
	return 0, false
}

func firstArray(obj gjson.Result, keys []string) ([]gjson.Result, bool) {
	for _, k := range keys {
		if v := obj.Get(k); v.IsArray() {
			return v.Array(), true
		}
	}
	return nil, false
}

func (r *ResultReader) load(ctx context.Context) ([]byte, error) {
	r.once.Do(func() {
		r.body, r.err = r.fetch(ctx)
		if r.err == nil && !gjson.ValidBytes(r.body) {
			r.err = core.NewMalformedSourceError(r.cfg.Location, "invalid JSON")
		}
	})
	return r.body, r.err
}

func (r *ResultReader) fetch(ctx context.Context) ([]byte, error) {
	loc := r.cfg.Location
	if !strings.HasPrefix(loc, "http://") && !strings.HasPrefix(loc, "https://") {
		body, err := os.ReadFile(loc)
		if err != nil {
			return nil, fmt.Errorf("failed to read result file: %w", err)
		}
		return body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.AuthToken)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("result endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
