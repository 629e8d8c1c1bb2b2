package attack

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GridConfig describes the threshold grid a metric curve is sampled on
type GridConfig struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// maxGridPoints bounds the grid so a tiny step cannot exhaust memory
const maxGridPoints = 20000

// BuildMetricGrid derives the metric curves from the two subpopulations for
// datasets that ship scores without a precomputed grid. The attack predicts
// group A for scores above the threshold:
//
//	FNR(t)    = share of A with score <= t
//	FPR(t)    = share of B with score > t
//	attack(t) = 1 - (FPR + FNR) / 2   (balanced attack accuracy)
//
// An empty group contributes a rate of 0.
func BuildMetricGrid(samples []ScoredSample, cfg GridConfig) []MetricSample {
	thresholds := gridThresholds(cfg)
	if len(thresholds) == 0 {
		return nil
	}

	a := sortedScores(samples, GroupA)
	b := sortedScores(samples, GroupB)

	grid := make([]MetricSample, 0, len(thresholds))
	for _, t := range thresholds {
		fnr := empiricalCDF(t, a)
		fpr := 0.0
		if len(b) > 0 {
			fpr = 1 - empiricalCDF(t, b)
		}
		grid = append(grid, MetricSample{
			Threshold:         t,
			AttackScore:       1 - (fpr+fnr)/2,
			FalsePositiveRate: fpr,
			FalseNegativeRate: fnr,
		})
	}
	return grid
}

// gridThresholds spans [lo, hi] in multiples of Step. When that would
// exceed maxGridPoints the stride widens to a multiple of Step so the grid
// still reaches hi.
func gridThresholds(cfg GridConfig) []float64 {
	lo, hi := cfg.Min, cfg.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	if !(cfg.Step > 0) || math.IsNaN(lo) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil
	}
	n := math.Round((hi - lo) / cfg.Step)
	if !(n >= 1) {
		return []float64{lo}
	}
	if math.IsInf(n, 0) {
		return []float64{lo, hi}
	}
	stride := math.Max(1, math.Ceil(n/(maxGridPoints-1)))
	count := int(math.Ceil(n / stride))

	dst := make([]float64, count+1)
	floats.Span(dst, lo, lo+float64(count)*stride*cfg.Step)
	dst[count] = lo + n*cfg.Step
	decimals := stepDecimals(cfg.Step)
	for i := range dst {
		dst[i] = Quantize(dst[i], cfg.Step, decimals)
	}
	return dst
}

func sortedScores(samples []ScoredSample, g Group) []float64 {
	scores := Scores(samples, g)
	sort.Float64s(scores)
	return scores
}

// empiricalCDF is the share of sorted values <= q; 0 for no values
func empiricalCDF(q float64, sorted []float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.CDF(q, stat.Empirical, sorted, nil)
}
