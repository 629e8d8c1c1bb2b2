package viewmodel

import (
	"fmt"

	"gounlearn/domain/attack"
	"gounlearn/domain/core"
)

// ViewID names one of the two rendering surfaces
type ViewID string

const (
	HistogramView ViewID = "histogram" // butterfly dot histogram, score on Y
	CurveView     ViewID = "curves"    // metric curves, threshold on Y
)

// Views lists both surfaces
var Views = []ViewID{HistogramView, CurveView}

// ParseViewID resolves a view name
func ParseViewID(s string) (ViewID, error) {
	switch ViewID(s) {
	case HistogramView, CurveView:
		return ViewID(s), nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownView, s)
}

// DragState is the per-view drag interaction state
type DragState string

const (
	Idle     DragState = "idle"
	Dragging DragState = "dragging"
)

// Lifecycle is the coordinator's dataset lifecycle
type Lifecycle string

const (
	Uninitialized Lifecycle = "uninitialized"
	Ready         Lifecycle = "ready"
	Closed        Lifecycle = "closed"
)

// Viewport is the pixel size of a view's plot area
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Dataset is everything one visualization instance is built from. It is
// produced by a dataset source before Load and never mutated afterwards.
type Dataset struct {
	ID      core.ExperimentID     `json:"id"`
	Name    string                `json:"name"`
	Samples []attack.ScoredSample `json:"samples"`
	Metrics []attack.MetricSample `json:"metrics"`
}

// NewDataset joins the two subpopulations' score arrays
func NewDataset(id core.ExperimentID, name string, a, b []float64, metrics []attack.MetricSample) Dataset {
	samples := make([]attack.ScoredSample, 0, len(a)+len(b))
	for _, s := range a {
		samples = append(samples, attack.ScoredSample{Score: s, Group: attack.GroupA})
	}
	for _, s := range b {
		samples = append(samples, attack.ScoredSample{Score: s, Group: attack.GroupB})
	}
	return Dataset{ID: id, Name: name, Samples: samples, Metrics: metrics}
}

// Fingerprint hashes scores and metrics; equal datasets share it
func (d Dataset) Fingerprint() core.Hash {
	a := attack.Scores(d.Samples, attack.GroupA)
	b := attack.Scores(d.Samples, attack.GroupB)
	grid := make([]float64, 0, len(d.Metrics)*4)
	for _, m := range d.Metrics {
		grid = append(grid, m.Threshold, m.AttackScore, m.FalsePositiveRate, m.FalseNegativeRate)
	}
	return core.HashFloats(a, b, grid)
}

// Options configures a coordinator
type Options struct {
	Threshold       attack.ThresholdConfig
	BinWidth        float64
	DotSize         float64 // pixel pitch of one histogram dot
	DimOpacity      float64
	EmphasizedSide  attack.Side
	HandleTolerance float64 // pixels around the threshold line that grab it
	Histogram       Viewport
	Curves          Viewport
	Grid            attack.GridConfig // used when a dataset ships no metrics
}

// Scales returns the histogram's vertical scale and the curve view's
// horizontal (metric) and vertical (threshold) scales. Screen Y grows
// downward, so larger thresholds map to smaller pixel Y.
func (o Options) Scales() (histY, curveX, curveY attack.Scale) {
	th := o.Threshold
	return attack.NewScale(th.Min, th.Max, o.Histogram.Height, 0),
		attack.NewScale(0, 1, 0, o.Curves.Width),
		attack.NewScale(th.Min, th.Max, o.Curves.Height, 0)
}

// DefaultOptions returns the dashboard defaults
func DefaultOptions() Options {
	th := attack.DefaultThresholdConfig()
	return Options{
		Threshold:       th,
		BinWidth:        0.25,
		DotSize:         6,
		DimOpacity:      attack.DefaultDimOpacity,
		EmphasizedSide:  attack.Above,
		HandleTolerance: 8,
		Histogram:       Viewport{Width: 480, Height: 420},
		Curves:          Viewport{Width: 300, Height: 420},
		Grid:            attack.GridConfig{Min: th.Min, Max: th.Max, Step: th.Step},
	}
}
