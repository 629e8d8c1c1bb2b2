package attack

import (
	"math"
	"sort"
)

// BinSet is the per-group binned layout data for one dataset. It does not
// depend on the threshold and is computed once per dataset load.
type BinSet struct {
	Width   float64       `json:"bin_width"`
	Skipped int           `json:"skipped"` // NaN/Inf/out-of-range scores or unknown groups
	bins    map[Group][]Bin
	counts  map[Group]int
}

// Aggregate groups samples into fixed-width bins per group.
// Only non-empty bins are produced, ascending by LowerBound; members keep
// their input order. An empty input, or a non-positive width, yields an
// empty set rather than an error.
func Aggregate(samples []ScoredSample, binWidth float64) *BinSet {
	set := &BinSet{
		Width:  binWidth,
		bins:   make(map[Group][]Bin, len(Groups)),
		counts: make(map[Group]int, len(Groups)),
	}
	if !(binWidth > 0) || math.IsInf(binWidth, 0) {
		set.Skipped = len(samples)
		return set
	}

	byGroup := make(map[Group]map[int]*Bin, len(Groups))
	for _, g := range Groups {
		byGroup[g] = make(map[int]*Bin)
	}

	for _, s := range samples {
		index, ok := binIndex(s.Score, binWidth)
		buckets, known := byGroup[s.Group]
		if !ok || !known {
			set.Skipped++
			continue
		}
		b, exists := buckets[index]
		if !exists {
			b = &Bin{Index: index, LowerBound: float64(index) * binWidth}
			buckets[index] = b
		}
		b.Members = append(b.Members, s)
		set.counts[s.Group]++
	}

	for g, buckets := range byGroup {
		if len(buckets) == 0 {
			continue
		}
		ordered := make([]Bin, 0, len(buckets))
		for _, b := range buckets {
			ordered = append(ordered, *b)
		}
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].Index < ordered[j].Index
		})
		set.bins[g] = ordered
	}

	return set
}

// binIndex returns floor(score / width). Scores whose index does not fit
// in an int cannot be binned.
func binIndex(score, width float64) (int, bool) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, false
	}
	q := math.Floor(score / width)
	if math.IsNaN(q) || q < float64(math.MinInt) || q >= float64(math.MaxInt) {
		return 0, false
	}
	return int(q), true
}

// Bins returns the ordered non-empty bins of a group. The slice is shared;
// callers must not mutate it.
func (s *BinSet) Bins(g Group) []Bin {
	if s == nil {
		return nil
	}
	return s.bins[g]
}

// Count returns how many samples of a group were binned
func (s *BinSet) Count(g Group) int {
	if s == nil {
		return 0
	}
	return s.counts[g]
}

// Total returns the number of binned samples across all groups
func (s *BinSet) Total() int {
	total := 0
	for _, g := range Groups {
		total += s.Count(g)
	}
	return total
}

// MaxBinCount returns the largest bin population across both groups,
// which sizes the lateral axis of the butterfly histogram.
func (s *BinSet) MaxBinCount() int {
	largest := 0
	for _, g := range Groups {
		for _, b := range s.Bins(g) {
			largest = max(largest, b.Count())
		}
	}
	return largest
}

// Extent returns the lowest lower bound and highest upper bound over all
// bins. ok is false for an empty set.
func (s *BinSet) Extent() (lo, hi float64, ok bool) {
	for _, g := range Groups {
		bins := s.Bins(g)
		if len(bins) == 0 {
			continue
		}
		first, last := bins[0].LowerBound, bins[len(bins)-1].LowerBound+s.Width
		if !ok {
			lo, hi, ok = first, last, true
			continue
		}
		lo = min(lo, first)
		hi = max(hi, last)
	}
	return lo, hi, ok
}
