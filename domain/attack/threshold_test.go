package attack

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdInitialValue(t *testing.T) {
	state := NewThresholdState(DefaultThresholdConfig())
	assert.Equal(t, 1.25, state.Value())

	// initial values are quantized and clamped like any other input
	state = NewThresholdState(ThresholdConfig{Min: 0, Max: 1, Step: 0.1, Initial: 7})
	assert.Equal(t, 1.0, state.Value())

	state = NewThresholdState(ThresholdConfig{Min: 1, Max: 0, Step: 0.1, Initial: math.NaN()})
	assert.Equal(t, 0.0, state.Value())
}

func TestThresholdClamping(t *testing.T) {
	cfg := DefaultThresholdConfig()
	state := NewThresholdState(cfg)

	tests := []struct {
		raw      float64
		expected float64
	}{
		{-100, cfg.Min},
		{cfg.Min - 0.01, cfg.Min},
		{1e9, cfg.Max},
		{math.Inf(1), cfg.Max},
		{math.Inf(-1), cfg.Min},
	}

	for _, test := range tests {
		accepted, _ := state.Set(test.raw)
		if accepted != test.expected {
			t.Errorf("Set(%v) = %v, expected %v", test.raw, accepted, test.expected)
		}
	}
}

func TestThresholdQuantization(t *testing.T) {
	cfg := DefaultThresholdConfig()
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 5000; i++ {
		raw := cfg.Min + rng.Float64()*(cfg.Max-cfg.Min)
		state := NewThresholdState(cfg)
		accepted, _ := state.Set(raw)
		expected := math.Round(raw/cfg.Step) * cfg.Step
		if math.Abs(accepted-expected) >= 1e-9 {
			t.Fatalf("Set(%v) = %v, expected ~%v", raw, accepted, expected)
		}
	}
}

func TestThresholdIdempotent(t *testing.T) {
	state := NewThresholdState(DefaultThresholdConfig())

	first, changed := state.Set(3.14159)
	assert.True(t, changed)
	assert.Equal(t, 3.15, first)

	second, changed := state.Set(3.14159)
	assert.False(t, changed, "repeated input must not signal a change")
	assert.Equal(t, first, second)

	// a different raw value rounding to the same step is also a no-op
	_, changed = state.Set(3.16)
	assert.False(t, changed)
}

func TestThresholdDragSettlesExactly(t *testing.T) {
	state := NewThresholdState(DefaultThresholdConfig())
	assert.Equal(t, 1.25, state.Value())

	for _, raw := range []float64{1.26, 1.2712, 1.289, 1.2999999, 1.30} {
		state.Set(raw)
	}
	assert.Equal(t, 1.3, state.Value())
	assert.Equal(t, "1.3", formatFloat(state.Value()))
}

func TestThresholdIgnoresNaN(t *testing.T) {
	state := NewThresholdState(DefaultThresholdConfig())
	accepted, changed := state.Set(math.NaN())
	assert.False(t, changed)
	assert.Equal(t, 1.25, accepted)
}

func TestQuantizeWithoutStep(t *testing.T) {
	assert.Equal(t, 1.234, Quantize(1.234, 0, 0))
	assert.Equal(t, 2, stepDecimals(0.05))
	assert.Equal(t, 0, stepDecimals(1))
	assert.Equal(t, 3, stepDecimals(0.125))
}
