package viewmodel

import (
	"gounlearn/domain/attack"
	"gounlearn/domain/core"
)

// Frame is the immutable view-model of both views at one threshold. The
// rendering layer projects it to drawing calls without keeping state.
type Frame struct {
	Seq         uint64         `json:"seq"`
	Fingerprint string         `json:"fingerprint"`
	Threshold   float64        `json:"threshold"`
	Histogram   HistogramFrame `json:"histogram"`
	Curves      CurveFrame     `json:"curves"`
}

// DotState is a laid-out dot with its visual attributes at this threshold
type DotState struct {
	Dot
	attack.Classification
}

// Partition counts one group's samples on each side of the threshold
type Partition struct {
	Group attack.Group `json:"group"`
	Above int          `json:"above"`
	Below int          `json:"below"`
}

// HistogramFrame is the butterfly view at one threshold
type HistogramFrame struct {
	Viewport   Viewport        `json:"viewport"`
	Boundary   float64         `json:"boundary"` // threshold line, pixel Y in this view
	Dots       []DotState      `json:"dots"`
	Overflow   []OverflowLabel `json:"overflow"`
	Partitions []Partition     `json:"partitions"`
	Drag       DragState       `json:"drag"`
}

// CurveFrame is the metric-curve view at one threshold
type CurveFrame struct {
	Viewport      Viewport                        `json:"viewport"`
	Boundary      float64                         `json:"boundary"` // threshold line, pixel Y in this view
	Readout       *attack.MetricSample            `json:"readout,omitempty"`
	Intersections map[attack.Curve][]attack.Point `json:"intersections"`
	Clips         []attack.ClipSplit              `json:"clips"`
	Paths         map[attack.Curve][]attack.Point `json:"paths"` // static per dataset
	Drag          DragState                       `json:"drag"`
}

// model is the per-load state every frame is derived from. Nothing in it
// depends on the threshold.
type model struct {
	dataset     Dataset
	fingerprint core.Hash
	bins        *attack.BinSet
	curves      *attack.CurveModel
	layout      ButterflyLayout
	paths       map[attack.Curve][]attack.Point

	histY, curveX, curveY attack.Scale
	histCls, curveCls     attack.Classifier
}

func newModel(ds Dataset, opts Options) *model {
	metrics := ds.Metrics
	if len(metrics) == 0 && len(ds.Samples) > 0 {
		metrics = attack.BuildMetricGrid(ds.Samples, opts.Grid)
	}

	m := &model{
		dataset:     ds,
		fingerprint: ds.Fingerprint(),
		bins:        attack.Aggregate(ds.Samples, opts.BinWidth),
		curves:      attack.NewCurveModel(metrics),
	}
	m.histY, m.curveX, m.curveY = opts.Scales()
	m.histCls = classifierFor(m.histY, opts)
	m.curveCls = classifierFor(m.curveY, opts)
	m.layout = LayoutButterfly(m.bins, m.histY, opts.Histogram, opts.DotSize)

	m.paths = make(map[attack.Curve][]attack.Point, len(attack.Curves))
	for _, c := range attack.Curves {
		series := m.curves.Series(c)
		for i, p := range series {
			series[i] = attack.Point{X: m.curveX.Map(p.X), Y: m.curveY.Map(p.Y)}
		}
		m.paths[c] = series
	}
	return m
}

func classifierFor(scale attack.Scale, opts Options) attack.Classifier {
	cls := attack.NewClassifier(scale)
	if opts.EmphasizedSide != "" {
		cls.EmphasizedSide = opts.EmphasizedSide
	}
	if opts.DimOpacity > 0 {
		cls.DimOpacity = opts.DimOpacity
	}
	return cls
}

// scaleFor returns the vertical threshold scale of a view
func (m *model) scaleFor(view ViewID) attack.Scale {
	if view == CurveView {
		return m.curveY
	}
	return m.histY
}

// frame derives both views at threshold. Each view's boundary is computed in
// its own pixel space; only the threshold value is shared.
func (m *model) frame(seq uint64, threshold float64, opts Options, drags map[ViewID]DragState) Frame {
	return Frame{
		Seq:         seq,
		Fingerprint: m.fingerprint.Short(),
		Threshold:   threshold,
		Histogram:   m.histogramFrame(threshold, opts.Histogram, drags[HistogramView]),
		Curves:      m.curveFrame(threshold, opts.Curves, drags[CurveView]),
	}
}

func (m *model) histogramFrame(threshold float64, vp Viewport, drag DragState) HistogramFrame {
	dots := make([]DotState, len(m.layout.Dots))
	for i, d := range m.layout.Dots {
		// dots are drawn at their bin centre, so they are classified there
		center := attack.ScoredSample{Score: m.bins.Width*float64(d.Bin) + m.bins.Width/2, Group: d.Group}
		dots[i] = DotState{Dot: d, Classification: m.histCls.ClassifySample(center, threshold)}
	}

	partitions := make([]Partition, 0, len(attack.Groups))
	for _, g := range attack.Groups {
		p := Partition{Group: g}
		for _, s := range attack.Scores(m.dataset.Samples, g) {
			if m.histCls.Side(s, threshold) == attack.Above {
				p.Above++
			} else {
				p.Below++
			}
		}
		partitions = append(partitions, p)
	}

	return HistogramFrame{
		Viewport:   vp,
		Boundary:   m.histY.Map(threshold),
		Dots:       dots,
		Overflow:   m.layout.Overflow,
		Partitions: partitions,
		Drag:       orIdle(drag),
	}
}

func (m *model) curveFrame(threshold float64, vp Viewport, drag DragState) CurveFrame {
	cf := CurveFrame{
		Viewport:      vp,
		Boundary:      m.curveY.Map(threshold),
		Intersections: make(map[attack.Curve][]attack.Point, len(attack.Curves)),
		Clips:         m.curves.ClipRegions(threshold, m.curveX, m.curveY, m.curveCls),
		Paths:         m.paths,
		Drag:          orIdle(drag),
	}
	if readout, ok := m.curves.ValueAt(threshold); ok {
		cf.Readout = &readout
	}
	for _, c := range attack.Curves {
		cf.Intersections[c] = m.curves.IntersectionsIn(c, threshold, m.curveX, m.curveY)
	}
	return cf
}

func orIdle(s DragState) DragState {
	if s == "" {
		return Idle
	}
	return s
}
