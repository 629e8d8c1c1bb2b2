package attack

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformSamples(rng *rand.Rand, n int, g Group, lo, hi float64) []ScoredSample {
	out := make([]ScoredSample, n)
	for i := range out {
		out[i] = ScoredSample{Score: lo + rng.Float64()*(hi-lo), Group: g}
	}
	return out
}

func TestAggregateConservesSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, width := range []float64{0.05, 0.1, 0.25, 1} {
		samples := append(uniformSamples(rng, 300, GroupA, -2, 10), uniformSamples(rng, 217, GroupB, -2, 10)...)
		rng.Shuffle(len(samples), func(i, j int) { samples[i], samples[j] = samples[j], samples[i] })

		set := Aggregate(samples, width)
		for _, g := range Groups {
			total := 0
			for _, b := range set.Bins(g) {
				total += len(b.Members)
				for _, m := range b.Members {
					assert.Equal(t, g, m.Group)
					assert.Equal(t, b.Index, int(math.Floor(m.Score/width)))
				}
			}
			assert.Equal(t, len(Scores(samples, g)), total, "group %s width %v", g, width)
			assert.Equal(t, total, set.Count(g))
		}
		assert.Zero(t, set.Skipped)
	}
}

func TestAggregateOrdering(t *testing.T) {
	samples := []ScoredSample{
		{Score: 0.9, Group: GroupA},
		{Score: -0.1, Group: GroupA},
		{Score: 0.2, Group: GroupA},
		{Score: 0.7, Group: GroupA},
		{Score: 0.4, Group: GroupB},
	}

	set := Aggregate(samples, 0.5)
	bins := set.Bins(GroupA)
	require.Len(t, bins, 3)

	assert.Equal(t, -1, bins[0].Index)
	assert.Equal(t, -0.5, bins[0].LowerBound)
	assert.Equal(t, 0, bins[1].Index)
	assert.Equal(t, 1, bins[2].Index)

	// insertion order inside a bin drives stacking
	assert.Equal(t, []ScoredSample{{Score: 0.9, Group: GroupA}, {Score: 0.7, Group: GroupA}}, bins[2].Members)

	require.Len(t, set.Bins(GroupB), 1)
	assert.Equal(t, 2, set.MaxBinCount())
}

func TestAggregateIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	samples := uniformSamples(rng, 500, GroupA, 0, 3)

	first := Aggregate(samples, 0.1)
	second := Aggregate(samples, 0.1)
	assert.Equal(t, first.Bins(GroupA), second.Bins(GroupA))
}

func TestAggregateEmptyAndDegenerate(t *testing.T) {
	set := Aggregate(nil, 0.25)
	assert.Empty(t, set.Bins(GroupA))
	assert.Empty(t, set.Bins(GroupB))
	assert.Zero(t, set.Total())
	_, _, ok := set.Extent()
	assert.False(t, ok)

	samples := []ScoredSample{{Score: 1, Group: GroupA}}
	for _, width := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		set := Aggregate(samples, width)
		assert.Empty(t, set.Bins(GroupA), "width %v", width)
		assert.Equal(t, 1, set.Skipped)
	}

	var nilSet *BinSet
	assert.Nil(t, nilSet.Bins(GroupA))
	assert.Zero(t, nilSet.Count(GroupA))
}

func TestAggregateSkipsUnbinnable(t *testing.T) {
	samples := []ScoredSample{
		{Score: math.NaN(), Group: GroupA},
		{Score: math.Inf(-1), Group: GroupB},
		{Score: 1, Group: Group("C")},
		{Score: 1, Group: GroupA},
	}
	set := Aggregate(samples, 1)
	assert.Equal(t, 3, set.Skipped)
	assert.Equal(t, 1, set.Total())
}

func TestAggregateSkipsScoresBeyondIndexRange(t *testing.T) {
	samples := []ScoredSample{
		{Score: 1e300, Group: GroupA},
		{Score: -1e300, Group: GroupA},
		{Score: 1e-300, Group: GroupB},
		{Score: 0.6, Group: GroupA},
	}
	set := Aggregate(samples, 0.25)
	assert.Equal(t, 2, set.Skipped)

	bins := set.Bins(GroupA)
	require.Len(t, bins, 1)
	assert.Equal(t, 2, bins[0].Index)
	assert.Equal(t, 0.5, bins[0].LowerBound)
	assert.Equal(t, []ScoredSample{{Score: 0.6, Group: GroupA}}, bins[0].Members)

	bins = set.Bins(GroupB)
	require.Len(t, bins, 1)
	assert.Equal(t, 0, bins[0].Index)
}

func TestAggregateUniformScenario(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	samples := append(uniformSamples(rng, 50, GroupA, 0, 10), uniformSamples(rng, 50, GroupB, 0, 10)...)

	set := Aggregate(samples, 1)
	for _, g := range Groups {
		assert.LessOrEqual(t, len(set.Bins(g)), 10)
		assert.Equal(t, 50, set.Count(g))
	}

	summaries := Summarize(samples)
	require.Equal(t, GroupA, summaries[0].Group)
	assert.Equal(t, math.Floor(summaries[0].Min), set.Bins(GroupA)[0].LowerBound)

	lo, hi, ok := set.Extent()
	require.True(t, ok)
	assert.GreaterOrEqual(t, lo, 0.0)
	assert.LessOrEqual(t, hi, 10.0)
}
