package attack

import (
	"math"

	"github.com/montanaflynn/stats"
)

// GroupSummary holds descriptive statistics for one subpopulation's scores
type GroupSummary struct {
	Group  Group   `json:"group"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

// Scores extracts the finite scores of one group in input order
func Scores(samples []ScoredSample, g Group) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.Group != g || math.IsNaN(s.Score) || math.IsInf(s.Score, 0) {
			continue
		}
		out = append(out, s.Score)
	}
	return out
}

// Summarize computes per-group statistics. Groups without samples are
// reported with Count 0 and zero values.
func Summarize(samples []ScoredSample) []GroupSummary {
	summaries := make([]GroupSummary, 0, len(Groups))
	for _, g := range Groups {
		summaries = append(summaries, summarizeGroup(g, Scores(samples, g)))
	}
	return summaries
}

func summarizeGroup(g Group, data []float64) GroupSummary {
	summary := GroupSummary{Group: g, Count: len(data)}
	if len(data) == 0 {
		return summary
	}

	// stats only errors on empty input, which is excluded above
	summary.Min, _ = stats.Min(data)
	summary.Max, _ = stats.Max(data)
	summary.Mean, _ = stats.Mean(data)
	summary.Median, _ = stats.Median(data)
	summary.StdDev, _ = stats.StandardDeviation(data)
	return summary
}

// ScoreRange returns the overall min and max score across groups.
// ok is false when no finite scores exist.
func ScoreRange(samples []ScoredSample) (lo, hi float64, ok bool) {
	var all []float64
	for _, g := range Groups {
		all = append(all, Scores(samples, g)...)
	}
	if len(all) == 0 {
		return 0, 0, false
	}
	lo, _ = stats.Min(all)
	hi, _ = stats.Max(all)
	return lo, hi, true
}
