package attack

import (
	"math"
	"strconv"
	"strings"
)

// ThresholdConfig fixes the domain, quantization step and initial value of a
// threshold. The initial value is domain-specific and never data-derived.
type ThresholdConfig struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
	Initial float64 `json:"initial"`
}

// DefaultThresholdConfig covers the observed score range of the domain
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{
		Min:     -2.5,
		Max:     10,
		Step:    0.05,
		Initial: 1.25,
	}
}

// ThresholdState is the single shared decision threshold.
// INVARIANTS:
// - Min <= value <= Max
// - value is the nearest multiple of Step to the last accepted input,
//   unless clamping moved it onto a bound
type ThresholdState struct {
	cfg      ThresholdConfig
	decimals int
	value    float64
}

// NewThresholdState builds a state at the quantized, clamped initial value.
// Swapped bounds are reordered.
func NewThresholdState(cfg ThresholdConfig) *ThresholdState {
	if cfg.Min > cfg.Max {
		cfg.Min, cfg.Max = cfg.Max, cfg.Min
	}
	t := &ThresholdState{cfg: cfg, decimals: stepDecimals(cfg.Step)}
	initial := cfg.Initial
	if math.IsNaN(initial) {
		initial = cfg.Min
	}
	t.value = t.Accept(initial)
	return t
}

// Value returns the current threshold
func (t *ThresholdState) Value() float64 {
	return t.value
}

// Config returns the configuration the state was built with
func (t *ThresholdState) Config() ThresholdConfig {
	return t.cfg
}

// Set rounds raw to the nearest step, clamps it to the domain and stores it.
// changed is false when the accepted value equals the current one, so bursts
// of identical drag events trigger no recompute. NaN is ignored.
func (t *ThresholdState) Set(raw float64) (accepted float64, changed bool) {
	if math.IsNaN(raw) {
		return t.value, false
	}
	accepted = t.Accept(raw)
	if accepted == t.value {
		return accepted, false
	}
	t.value = accepted
	return accepted, true
}

// Accept computes the value Set would store for raw without storing it
func (t *ThresholdState) Accept(raw float64) float64 {
	return Clamp(Quantize(raw, t.cfg.Step, t.decimals), t.cfg.Min, t.cfg.Max)
}

// Quantize rounds v to the nearest multiple of step and strips the binary
// noise of the multiplication by rounding to the step's decimal precision,
// so 26 * 0.05 yields 1.3 rather than 1.3000000000000003.
func Quantize(v, step float64, decimals int) float64 {
	if !(step > 0) || math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	q := math.Round(v/step) * step
	if decimals <= 0 {
		return q
	}
	p := math.Pow10(decimals)
	return math.Round(q*p) / p
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// stepDecimals counts the decimal places of the step, capped at 12
func stepDecimals(step float64) int {
	if !(step > 0) || math.IsInf(step, 0) {
		return 0
	}
	s := strconv.FormatFloat(step, 'f', -1, 64)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	return min(len(s)-dot-1, 12)
}
