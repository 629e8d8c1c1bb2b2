package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gounlearn/domain/attack"
	"gounlearn/internal/chart"
	"gounlearn/internal/report"
	"gounlearn/internal/viewmodel"

	"github.com/spf13/cobra"
)

func newBinsCmd() *cobra.Command {
	var experimentID string

	cmd := &cobra.Command{
		Use:   "bins [source]",
		Short: "Print the score bins of both groups",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), locationArg(args), experimentID)
			if err != nil {
				return err
			}
			defer s.close()

			set, err := s.coord.BinSet()
			if err != nil {
				return err
			}
			fmt.Printf("Dataset: %s (bin width %.2f, %d skipped)\n", s.dataset.Name, set.Width, set.Skipped)
			for _, g := range attack.Groups {
				fmt.Printf("\nGroup %s: %d samples\n", g, set.Count(g))
				for _, b := range set.Bins(g) {
					fmt.Printf("  [%6.2f, %6.2f)  %3d  %s\n", b.LowerBound, b.LowerBound+set.Width, b.Count(), bar(b.Count()))
				}
			}
			return nil
		},
	}
	sourceFlags(cmd, &experimentID)
	return cmd
}

func bar(n int) string {
	return string(bytes.Repeat([]byte("#"), min(n, 60)))
}

func newClassifyCmd() *cobra.Command {
	var (
		experimentID string
		threshold    float64
		scores       []float64
	)

	cmd := &cobra.Command{
		Use:   "classify [source]",
		Short: "Classify scores against a threshold",
		Long: `Classify scores against the threshold of a loaded dataset.

Example: unlearn-cli classify results.json --threshold 2.2 --score 3 --score 0.5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), locationArg(args), experimentID)
			if err != nil {
				return err
			}
			defer s.close()

			th, err := setThreshold(cmd, s, threshold)
			if err != nil {
				return err
			}
			fmt.Printf("Threshold: %.2f\n", th)
			for _, score := range scores {
				cls, _, err := s.coord.Classify(score)
				if err != nil {
					return err
				}
				fmt.Printf("  %8.3f  %-5s  %-4s  opacity %.2f\n", score, cls.Side, cls.Emphasis, cls.Opacity)
			}
			return nil
		},
	}
	sourceFlags(cmd, &experimentID)
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Threshold to classify against (default: initial threshold)")
	cmd.Flags().Float64SliceVar(&scores, "score", nil, "Score to classify (repeatable)")
	return cmd
}

func newIntersectCmd() *cobra.Command {
	var (
		experimentID string
		threshold    float64
		curveName    string
	)

	cmd := &cobra.Command{
		Use:   "intersect [source]",
		Short: "Find where metric curves cross a threshold",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), locationArg(args), experimentID)
			if err != nil {
				return err
			}
			defer s.close()

			th, err := setThreshold(cmd, s, threshold)
			if err != nil {
				return err
			}
			curves := attack.Curves
			if curveName != "" {
				c, err := attack.ParseCurve(curveName)
				if err != nil {
					return err
				}
				curves = []attack.Curve{c}
			}

			out := make(map[attack.Curve][]attack.Point, len(curves))
			for _, c := range curves {
				points, err := s.coord.Intersections(c, th)
				if err != nil {
					return err
				}
				out[c] = points
			}
			sample, ok, err := s.coord.ValueAt(th)
			if err != nil {
				return err
			}

			result := map[string]interface{}{"threshold": th, "intersections": out}
			if ok {
				result["nearest"] = sample
			}
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
	sourceFlags(cmd, &experimentID)
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Threshold (default: initial threshold)")
	cmd.Flags().StringVar(&curveName, "curve", "", "Curve: attack, fpr or fnr (default: all)")
	return cmd
}

func newDragCmd() *cobra.Command {
	var (
		experimentID string
		viewName     string
		to           float64
		steps        int
	)

	cmd := &cobra.Command{
		Use:   "drag [source]",
		Short: "Simulate dragging the threshold handle and print each frame",
		Long: `Press on the threshold handle of one view, move in even pixel steps
to the target threshold and release. Every published frame is printed,
showing both views following the drag.

Example: unlearn-cli drag scores.xlsx --view curves --to 3.5 --steps 8`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := viewmodel.ParseViewID(viewName)
			if err != nil {
				return err
			}
			if steps < 1 {
				return fmt.Errorf("steps must be at least 1")
			}
			s, err := openSession(cmd.Context(), locationArg(args), experimentID)
			if err != nil {
				return err
			}
			defer s.close()

			unsubscribe := s.coord.Subscribe(printFrame)
			defer unsubscribe()

			start, err := s.coord.Frame()
			if err != nil {
				return err
			}
			from, target := viewBoundary(start, view), viewPixel(s.coord.Options(), view, to)

			state, err := s.coord.PointerDown(view, from)
			if err != nil {
				return err
			}
			fmt.Printf("Pointer down on %s at y=%.1f: %s\n", view, from, state)
			for i := 1; i <= steps; i++ {
				px := from + (target-from)*float64(i)/float64(steps)
				if _, _, err := s.coord.PointerMove(view, px); err != nil {
					return err
				}
			}
			if err := s.coord.PointerUp(view); err != nil {
				return err
			}

			th, err := s.coord.Threshold()
			if err != nil {
				return err
			}
			fmt.Printf("Released at threshold %.2f\n", th)
			return nil
		},
	}
	sourceFlags(cmd, &experimentID)
	cmd.Flags().StringVar(&viewName, "view", string(viewmodel.HistogramView), "View to drag in: histogram or curves")
	cmd.Flags().Float64Var(&to, "to", 3, "Target threshold")
	cmd.Flags().IntVar(&steps, "steps", 10, "Number of pointer moves")
	return cmd
}

func viewBoundary(f viewmodel.Frame, view viewmodel.ViewID) float64 {
	if view == viewmodel.CurveView {
		return f.Curves.Boundary
	}
	return f.Histogram.Boundary
}

func viewPixel(opts viewmodel.Options, view viewmodel.ViewID, threshold float64) float64 {
	histY, _, curveY := opts.Scales()
	if view == viewmodel.CurveView {
		return curveY.Map(threshold)
	}
	return histY.Map(threshold)
}

func printFrame(f viewmodel.Frame) {
	fmt.Printf("frame %3d  threshold %6.2f  histogram y=%6.1f  curves y=%6.1f", f.Seq, f.Threshold, f.Histogram.Boundary, f.Curves.Boundary)
	for _, p := range f.Histogram.Partitions {
		fmt.Printf("  %s %d/%d", p.Group, p.Above, p.Below)
	}
	if r := f.Curves.Readout; r != nil {
		fmt.Printf("  attack %.3f", r.AttackScore)
	}
	fmt.Println()
}

func newRenderCmd() *cobra.Command {
	var (
		experimentID string
		threshold    float64
		outDir       string
		formatName   string
	)

	cmd := &cobra.Command{
		Use:   "render [source]",
		Short: "Write both views and the readout report to a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := chart.ParseFormat(formatName)
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), locationArg(args), experimentID)
			if err != nil {
				return err
			}
			defer s.close()

			if _, err := setThreshold(cmd, s, threshold); err != nil {
				return err
			}
			frame, err := s.coord.Frame()
			if err != nil {
				return err
			}
			summaries, err := s.coord.Summaries()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", outDir, err)
			}

			opts := s.coord.Options()
			var hist, curves bytes.Buffer
			if err := chart.Histogram(&hist, format, frame, opts); err != nil {
				return fmt.Errorf("failed to render histogram: %w", err)
			}
			if err := chart.Curves(&curves, format, frame, opts); err != nil {
				return fmt.Errorf("failed to render curves: %w", err)
			}
			md := report.Markdown(report.Input{
				Dataset:     s.dataset.Name,
				Frame:       frame,
				Summaries:   summaries,
				GeneratedAt: time.Now(),
			})

			files := map[string][]byte{
				"histogram." + string(format): hist.Bytes(),
				"curves." + string(format):    curves.Bytes(),
				"report.md":                   md,
				"report.html":                 report.HTML(md),
			}
			for name, data := range files {
				path := filepath.Join(outDir, name)
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
				fmt.Printf("Wrote %s (%d bytes)\n", path, len(data))
			}
			return nil
		},
	}
	sourceFlags(cmd, &experimentID)
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Threshold to render at (default: initial threshold)")
	cmd.Flags().StringVar(&outDir, "out", "out", "Output directory")
	cmd.Flags().StringVar(&formatName, "format", "png", "Chart format: png or svg")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	var experimentID string

	cmd := &cobra.Command{
		Use:   "summary [source]",
		Short: "Print per-group score statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), locationArg(args), experimentID)
			if err != nil {
				return err
			}
			defer s.close()

			summaries, err := s.coord.Summaries()
			if err != nil {
				return err
			}
			frame, err := s.coord.Frame()
			if err != nil {
				return err
			}
			fmt.Printf("Dataset: %s (%s)\n", s.dataset.Name, frame.Fingerprint)
			for _, sum := range summaries {
				fmt.Printf("  %s: n=%d", sum.Group, sum.Count)
				if sum.Count > 0 {
					fmt.Printf(" min=%.3f median=%.3f mean=%.3f max=%.3f", sum.Min, sum.Median, sum.Mean, sum.Max)
				}
				fmt.Println()
			}
			th := s.cfg.View.Threshold
			fmt.Printf("Threshold domain: [%.2f, %.2f], step %.2f\n", th.Min, th.Max, th.Step)
			return nil
		},
	}
	sourceFlags(cmd, &experimentID)
	return cmd
}
