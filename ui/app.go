package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gounlearn/domain/attack"
	"gounlearn/internal/chart"
	"gounlearn/internal/viewmodel"
)

//go:embed templates/*.html static/*
var embeddedFiles embed.FS

// App serves the rendered pages and chart images. It is mounted into the
// gin server but keeps its own chi router and middleware.
type App struct {
	router    *chi.Mux
	coord     *viewmodel.Coordinator
	templates *template.Template
}

// NewApp creates the page application for coord
func NewApp(coord *viewmodel.Coordinator) (*App, error) {
	funcMap := template.FuncMap{
		"fmt2":       func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"fmt4":       func(v float64) string { return fmt.Sprintf("%.4f", v) },
		"points":     svgPoints,
		"groupColor": chart.GroupColor,
		"curveColor": chart.CurveColor,
		"half":       func(v float64) float64 { return v / 2 },
		"pct": func(n, total int) string {
			if total == 0 {
				return "0.0%"
			}
			return fmt.Sprintf("%.1f%%", 100*float64(n)/float64(total))
		},
		"add": func(a, b int) int { return a + b },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:    chi.NewRouter(),
		coord:     coord,
		templates: templates,
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/charts/{file}", a.handleChart)
}

// ServeHTTP implements http.Handler
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

type curvePath struct {
	Curve  attack.Curve
	Label  string
	Points []attack.Point
}

type dashboardPage struct {
	Dataset  string
	Frame    viewmodel.Frame
	Options  viewmodel.Options
	Paths    []curvePath
	Split    attack.ClipSplit
	Curves   []attack.Curve
	Readout  []readoutRow
	Total    int
	Step     float64
	MinValue float64
	MaxValue float64
}

type readoutRow struct {
	Curve attack.Curve
	Label string
	Value float64
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	frame, err := a.coord.Frame()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	ds, err := a.coord.Dataset()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	opts := a.coord.Options()
	page := dashboardPage{
		Dataset:  ds.Name,
		Frame:    frame,
		Options:  opts,
		Curves:   attack.Curves,
		Total:    len(ds.Samples),
		Step:     opts.Threshold.Step,
		MinValue: opts.Threshold.Min,
		MaxValue: opts.Threshold.Max,
	}
	if len(frame.Curves.Clips) > 0 {
		page.Split = frame.Curves.Clips[0]
	}
	for _, c := range attack.Curves {
		page.Paths = append(page.Paths, curvePath{Curve: c, Label: c.Label(), Points: frame.Curves.Paths[c]})
		if frame.Curves.Readout != nil {
			page.Readout = append(page.Readout, readoutRow{Curve: c, Label: c.Label(), Value: c.Value(*frame.Curves.Readout)})
		}
	}

	a.render(w, "dashboard.html", page)
}

// handleChart renders /charts/{histogram|curves}.{png|svg}. A format query
// parameter overrides the extension.
func (a *App) handleChart(w http.ResponseWriter, r *http.Request) {
	name, ext, _ := strings.Cut(chi.URLParam(r, "file"), ".")
	if q := r.URL.Query().Get("format"); q != "" {
		ext = q
	}
	format, err := chart.ParseFormat(ext)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	render := chart.Histogram
	switch viewmodel.ViewID(name) {
	case viewmodel.HistogramView:
	case viewmodel.CurveView:
		render = chart.Curves
	default:
		http.NotFound(w, r)
		return
	}

	frame, err := a.coord.Frame()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, format, frame, a.coord.Options()); err != nil {
		log.Printf("[Charts] Failed to render %s at frame %d: %v", name, frame.Seq, err)
		http.Error(w, "failed to render chart", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("[Charts] Failed to write %s: %v", name, err)
	}
}

func (a *App) render(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("[Template] Error rendering %s: %v", name, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// svgPoints formats a pixel path for a polyline points attribute
func svgPoints(path []attack.Point) string {
	var b strings.Builder
	for i, p := range path {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.2f,%.2f", p.X, p.Y)
	}
	return b.String()
}
