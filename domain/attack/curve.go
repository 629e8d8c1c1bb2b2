package attack

import (
	"math"
	"sort"
)

// CurveModel is a piecewise-linear sampling of the three derived metrics over
// the threshold domain. In the curve view the metric value is plotted on the
// horizontal axis and the threshold on the vertical axis.
type CurveModel struct {
	samples []MetricSample
}

// NewCurveModel copies samples and orders them ascending by threshold.
// Spacing need not be even. Equal thresholds keep their input order.
func NewCurveModel(samples []MetricSample) *CurveModel {
	ordered := make([]MetricSample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Threshold < ordered[j].Threshold
	})
	return &CurveModel{samples: ordered}
}

// Len returns the number of grid points
func (m *CurveModel) Len() int {
	if m == nil {
		return 0
	}
	return len(m.samples)
}

// Samples returns the ordered grid. Callers must not mutate it.
func (m *CurveModel) Samples() []MetricSample {
	if m == nil {
		return nil
	}
	return m.samples
}

// ValueAt returns the sample whose threshold is closest to the query; ties
// go to the first in sequence order. ok is false for an empty model or a NaN
// query.
func (m *CurveModel) ValueAt(threshold float64) (MetricSample, bool) {
	if m.Len() == 0 || math.IsNaN(threshold) {
		return MetricSample{}, false
	}
	best := 0
	bestDist := math.Abs(m.samples[0].Threshold - threshold)
	for i := 1; i < len(m.samples); i++ {
		d := math.Abs(m.samples[i].Threshold - threshold)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return m.samples[best], true
}

// Series returns the (metric, threshold) points of one curve in grid order
func (m *CurveModel) Series(c Curve) []Point {
	points := make([]Point, 0, m.Len())
	for _, s := range m.Samples() {
		points = append(points, Point{X: c.Value(s), Y: s.Threshold})
	}
	return points
}

// Intersections returns every point where the curve meets the horizontal
// line at threshold, in domain units (X = metric value, Y = threshold).
// The curve is not assumed monotonic, so several crossings may be returned.
// Fewer than two samples, or no crossing, yields an empty result.
func (m *CurveModel) Intersections(c Curve, threshold float64) []Point {
	identity := func(v float64) float64 { return v }
	return m.crossings(c, threshold, identity, identity)
}

// IntersectionsIn is Intersections carried out in a view's pixel space
func (m *CurveModel) IntersectionsIn(c Curve, threshold float64, x, y Scale) []Point {
	return m.crossings(c, threshold, x.Map, y.Map)
}

func (m *CurveModel) crossings(c Curve, threshold float64, mapX, mapY func(float64) float64) []Point {
	points := []Point{}
	if m.Len() < 2 || math.IsNaN(threshold) {
		return points
	}
	yq := mapY(threshold)

	for i := 0; i+1 < len(m.samples); i++ {
		d1, d2 := m.samples[i], m.samples[i+1]
		x1, y1 := mapX(c.Value(d1)), mapY(d1.Threshold)
		x2, y2 := mapX(c.Value(d2)), mapY(d2.Threshold)

		if y1 == yq {
			// knot on the line; avoids dividing by a zero-height segment
			points = append(points, Point{X: x1, Y: y1})
			continue
		}
		if (y1-yq)*(y2-yq) < 0 {
			t := (yq - y1) / (y2 - y1)
			points = append(points, Point{X: x1 + t*(x2-x1), Y: yq})
		}
	}

	// the last knot is never a segment start
	last := m.samples[len(m.samples)-1]
	if mapY(last.Threshold) == yq {
		points = append(points, Point{X: mapX(c.Value(last)), Y: yq})
	}
	return points
}

// ============================================================================
// CLIP REGIONS
// ============================================================================

// Rect is an axis-aligned rectangle in pixels
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ClipRegion is one side of a curve path with its stroke opacity
type ClipRegion struct {
	Side    Side    `json:"side"`
	Rect    Rect    `json:"rect"`
	Opacity float64 `json:"opacity"`
}

// ClipSplit partitions a plot area at the threshold's pixel position
type ClipSplit struct {
	Curve    Curve      `json:"curve"`
	Boundary float64    `json:"boundary"`
	Above    ClipRegion `json:"above"`
	Below    ClipRegion `json:"below"`
}

// ClipRegions splits the plot area of every curve into an above and a below
// region exactly at the threshold's pixel Y. The result depends on the
// current threshold-to-pixel mapping and must be rebuilt on every change.
func (m *CurveModel) ClipRegions(threshold float64, x, y Scale, cls Classifier) []ClipSplit {
	split := SplitAt(threshold, x, y, cls)
	regions := make([]ClipSplit, 0, len(Curves))
	for _, c := range Curves {
		s := split
		s.Curve = c
		regions = append(regions, s)
	}
	return regions
}

// SplitAt computes the above/below rectangles for one plot area
func SplitAt(threshold float64, x, y Scale, cls Classifier) ClipSplit {
	top, bottom := y.PixelMin(), y.PixelMax()
	left, right := x.PixelMin(), x.PixelMax()
	boundary := Clamp(y.Map(threshold), top, bottom)

	emphasized := cls.emphasized()
	opacity := func(s Side) float64 {
		if s == emphasized {
			return 1
		}
		return cls.dimOpacity()
	}

	return ClipSplit{
		Boundary: boundary,
		Above: ClipRegion{
			Side:    Above,
			Rect:    Rect{X: left, Y: top, Width: right - left, Height: boundary - top},
			Opacity: opacity(Above),
		},
		Below: ClipRegion{
			Side:    Below,
			Rect:    Rect{X: left, Y: boundary, Width: right - left, Height: bottom - boundary},
			Opacity: opacity(Below),
		},
	}
}
