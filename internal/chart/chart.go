// Package chart renders frames of the two views to PNG or SVG with
// go-chart, for reports and for clients without a canvas.
package chart

import (
	"fmt"
	"io"
	"math"

	"gounlearn/domain/attack"
	"gounlearn/internal/viewmodel"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Format is an output encoding
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat resolves "png" or "svg"; empty means PNG
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", PNG:
		return PNG, nil
	case SVG:
		return SVG, nil
	}
	return "", fmt.Errorf("unsupported chart format %q", s)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) renderer() chart.RendererProvider {
	if f == SVG {
		return chart.SVG
	}
	return chart.PNG
}

// Palette hex codes, shared with the dashboard's inline SVG
var (
	hexA = "1f77b4"
	hexB = "ff7f0e"

	curveHex = map[attack.Curve]string{
		attack.AttackScore:       "2ca02c",
		attack.FalsePositiveRate: "9467bd",
		attack.FalseNegativeRate: "8c564b",
	}
)

// GroupColor returns the CSS color of a group
func GroupColor(g attack.Group) string {
	if g == attack.GroupB {
		return "#" + hexB
	}
	return "#" + hexA
}

// CurveColor returns the CSS color of a curve
func CurveColor(c attack.Curve) string {
	return "#" + curveHex[c]
}

var (
	colorA         = drawing.ColorFromHex(hexA)
	colorB         = drawing.ColorFromHex(hexB)
	colorThreshold = drawing.ColorFromHex("d62728")

	curveColors = map[attack.Curve]drawing.Color{
		attack.AttackScore:       drawing.ColorFromHex(curveHex[attack.AttackScore]),
		attack.FalsePositiveRate: drawing.ColorFromHex(curveHex[attack.FalsePositiveRate]),
		attack.FalseNegativeRate: drawing.ColorFromHex(curveHex[attack.FalseNegativeRate]),
	}
)

func withOpacity(c drawing.Color, opacity float64) drawing.Color {
	c.A = uint8(math.Round(255 * math.Max(0, math.Min(1, opacity))))
	return c
}

func dotStyle(c drawing.Color, size float64) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    size / 2,
		DotColor:    c,
	}
}

func thresholdSeries(x0, x1, threshold float64) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		Name:    fmt.Sprintf("threshold %.2f", threshold),
		XValues: []float64{x0, x1},
		YValues: []float64{threshold, threshold},
		Style: chart.Style{
			StrokeColor:     colorThreshold,
			StrokeWidth:     2,
			StrokeDashArray: []float64{6, 4},
		},
	}
}

// Histogram renders the butterfly dot histogram at the frame's threshold.
// Dots keep the opacity their classification assigns.
func Histogram(w io.Writer, f Format, frame viewmodel.Frame, opts viewmodel.Options) error {
	histY, _, _ := opts.Scales()
	vp := frame.Histogram.Viewport

	type key struct {
		group attack.Group
		full  bool
	}
	xs := map[key][]float64{}
	ys := map[key][]float64{}
	opacity := map[key]float64{}
	for _, d := range frame.Histogram.Dots {
		k := key{d.Group, d.Emphasis == attack.Full}
		xs[k] = append(xs[k], d.X)
		ys[k] = append(ys[k], histY.Invert(d.Y))
		opacity[k] = d.Opacity
	}

	var series []chart.Series
	for _, g := range attack.Groups {
		base := colorA
		if g == attack.GroupB {
			base = colorB
		}
		for _, full := range []bool{true, false} {
			k := key{g, full}
			if len(xs[k]) == 0 {
				continue
			}
			name := fmt.Sprintf("%s %s", g, attack.Dim)
			if full {
				name = fmt.Sprintf("%s %s", g, attack.Full)
			}
			series = append(series, chart.ContinuousSeries{
				Name:    name,
				XValues: xs[k],
				YValues: ys[k],
				Style:   dotStyle(withOpacity(base, opacity[k]), opts.DotSize),
			})
		}
	}

	var labels []chart.Value2
	for _, o := range frame.Histogram.Overflow {
		labels = append(labels, chart.Value2{XValue: o.X, YValue: histY.Invert(o.Y), Label: o.Text})
	}
	if len(labels) > 0 {
		series = append(series, chart.AnnotationSeries{Name: "overflow", Annotations: labels})
	}
	series = append(series, thresholdSeries(0, vp.Width, frame.Threshold))

	ch := chart.Chart{
		Title:      "Score distribution",
		Width:      int(vp.Width),
		Height:     int(vp.Height),
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  "A  |  B",
			Range: &chart.ContinuousRange{Min: 0, Max: vp.Width},
			Ticks: []chart.Tick{{Value: vp.Width / 4, Label: "A"}, {Value: vp.Width / 2, Label: ""}, {Value: 3 * vp.Width / 4, Label: "B"}},
		},
		YAxis: chart.YAxis{
			Name:  "score",
			Range: &chart.ContinuousRange{Min: opts.Threshold.Min, Max: opts.Threshold.Max},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(f.renderer(), w)
}

// Curves renders the metric curves with threshold on the vertical axis.
// Each curve is split at the threshold into its above and below parts,
// drawn with the clip opacities of the frame.
func Curves(w io.Writer, f Format, frame viewmodel.Frame, opts viewmodel.Options) error {
	_, curveX, curveY := opts.Scales()
	vp := frame.Curves.Viewport

	clipOpacity := map[attack.Curve]map[attack.Side]float64{}
	for _, c := range frame.Curves.Clips {
		clipOpacity[c.Curve] = map[attack.Side]float64{
			attack.Above: c.Above.Opacity,
			attack.Below: c.Below.Opacity,
		}
	}

	var series []chart.Series
	var labels []chart.Value2
	for _, c := range attack.Curves {
		path := frame.Curves.Paths[c]
		if len(path) == 0 {
			continue
		}
		points := make([]attack.Point, len(path))
		for i, p := range path {
			points[i] = attack.Point{X: curveX.Invert(p.X), Y: curveY.Invert(p.Y)}
		}
		above, below := splitAt(points, frame.Threshold)
		parts := map[attack.Side][]attack.Point{attack.Above: above, attack.Below: below}
		for _, side := range []attack.Side{attack.Above, attack.Below} {
			part := parts[side]
			if len(part) < 2 {
				continue
			}
			series = append(series, curveSeries(c, side, part, clipOpacity[c][side]))
		}
		for _, p := range frame.Curves.Intersections[c] {
			labels = append(labels, chart.Value2{
				XValue: curveX.Invert(p.X),
				YValue: curveY.Invert(p.Y),
				Label:  fmt.Sprintf("%s %.3f", c.Label(), curveX.Invert(p.X)),
			})
		}
	}
	if len(labels) > 0 {
		series = append(series, chart.AnnotationSeries{Name: "readout", Annotations: labels})
	}
	series = append(series, thresholdSeries(0, 1, frame.Threshold))

	ch := chart.Chart{
		Title:      "Attack metrics",
		Width:      int(vp.Width),
		Height:     int(vp.Height),
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  "rate",
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		YAxis: chart.YAxis{
			Name:  "threshold",
			Range: &chart.ContinuousRange{Min: opts.Threshold.Min, Max: opts.Threshold.Max},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(f.renderer(), w)
}

func curveSeries(c attack.Curve, side attack.Side, part []attack.Point, opacity float64) chart.ContinuousSeries {
	xs := make([]float64, len(part))
	ys := make([]float64, len(part))
	for i, p := range part {
		xs[i], ys[i] = p.X, p.Y
	}
	if opacity == 0 {
		opacity = 1
	}
	return chart.ContinuousSeries{
		Name:    fmt.Sprintf("%s (%s)", c.Label(), side),
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeColor: withOpacity(curveColors[c], opacity),
			StrokeWidth: 2,
		},
	}
}

// splitAt cuts a threshold-ordered polyline at threshold. The crossing
// point, interpolated linearly, ends one part and starts the other.
func splitAt(points []attack.Point, threshold float64) (above, below []attack.Point) {
	for i, p := range points {
		if i > 0 {
			prev := points[i-1]
			if (prev.Y-threshold)*(p.Y-threshold) < 0 {
				t := (threshold - prev.Y) / (p.Y - prev.Y)
				cross := attack.Point{X: prev.X + t*(p.X-prev.X), Y: threshold}
				above = append(above, cross)
				below = append(below, cross)
			}
		}
		switch {
		case p.Y > threshold:
			above = append(above, p)
		case p.Y < threshold:
			below = append(below, p)
		default:
			above = append(above, p)
			below = append(below, p)
		}
	}
	return above, below
}
