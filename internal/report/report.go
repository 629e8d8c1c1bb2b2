// Package report writes the threshold readout as Markdown and renders it
// to HTML for the dashboard and the CLI.
package report

import (
	"bytes"
	"fmt"
	"time"

	"gounlearn/domain/attack"
	"gounlearn/internal/viewmodel"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Input is everything a readout report describes
type Input struct {
	Dataset     string
	Frame       viewmodel.Frame
	Summaries   []attack.GroupSummary
	GeneratedAt time.Time
}

// Markdown writes the report
func Markdown(in Input) []byte {
	var b bytes.Buffer
	f := in.Frame

	fmt.Fprintf(&b, "# Threshold readout: %s\n\n", in.Dataset)
	fmt.Fprintf(&b, "Threshold **%.2f** (frame %d, dataset `%s`)", f.Threshold, f.Seq, f.Fingerprint)
	if !in.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, ", generated %s", in.GeneratedAt.UTC().Format(time.RFC3339))
	}
	b.WriteString("\n\n")

	b.WriteString("## Attack metrics\n\n")
	if r := f.Curves.Readout; r != nil {
		b.WriteString("| Metric | Value |\n|---|---:|\n")
		for _, c := range attack.Curves {
			fmt.Fprintf(&b, "| %s | %.4f |\n", c.Label(), c.Value(*r))
		}
		if r.Threshold != f.Threshold {
			fmt.Fprintf(&b, "\nNearest sampled threshold: %.4f\n", r.Threshold)
		}
	} else {
		b.WriteString("No metric grid is available for this dataset.\n")
	}
	b.WriteString("\n")

	b.WriteString("## Partition\n\n")
	b.WriteString("| Group | Above | Below | Share above |\n|---|---:|---:|---:|\n")
	for _, p := range f.Histogram.Partitions {
		share := 0.0
		if n := p.Above + p.Below; n > 0 {
			share = float64(p.Above) / float64(n)
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %.1f%% |\n", p.Group, p.Above, p.Below, 100*share)
	}
	b.WriteString("\n")

	if len(in.Summaries) > 0 {
		b.WriteString("## Score summary\n\n")
		b.WriteString("| Group | n | Min | Median | Mean | Max | Std dev |\n|---|---:|---:|---:|---:|---:|---:|\n")
		for _, s := range in.Summaries {
			fmt.Fprintf(&b, "| %s | %d | %.3f | %.3f | %.3f | %.3f | %.3f |\n",
				s.Group, s.Count, s.Min, s.Median, s.Mean, s.Max, s.StdDev)
		}
		b.WriteString("\n")
	}

	if len(f.Histogram.Overflow) > 0 {
		hidden := 0
		for _, o := range f.Histogram.Overflow {
			hidden += o.Hidden
		}
		fmt.Fprintf(&b, "> %d samples in %d bins exceed the histogram width and are summarized by overflow labels.\n",
			hidden, len(f.Histogram.Overflow))
	}
	return b.Bytes()
}

// HTML renders Markdown output to an HTML fragment
func HTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.ToHTML(md, p, r)
}
