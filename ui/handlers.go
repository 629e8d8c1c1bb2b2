package ui

import (
	"net/http"
	"strconv"
	"time"

	"gounlearn/domain/attack"
	"gounlearn/domain/core"
	"gounlearn/internal/errors"
	"gounlearn/internal/report"
	"gounlearn/internal/viewmodel"

	"github.com/gin-gonic/gin"
)

// statusFor maps an error code to its HTTP status
func statusFor(code string) int {
	switch code {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeValidationError:
		return http.StatusBadRequest
	case errors.CodeNotReady, errors.CodeConfigInvalid:
		return http.StatusServiceUnavailable
	case errors.CodeClosed:
		return http.StatusGone
	case errors.CodeSourceError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

// floatQuery parses a float query parameter. An absent parameter yields
// fallback; a malformed one an INVALID_INPUT error.
func floatQuery(c *gin.Context, key string, fallback float64) (float64, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.InvalidInput(key + " must be a number")
	}
	return v, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"lifecycle": s.coord.Lifecycle(),
		"clients":   s.hub.ClientCount(),
	})
}

func (s *Server) handleBins(c *gin.Context) {
	group, err := attack.ParseGroup(c.Param("group"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	set, err := s.coord.BinSet()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"group":     group,
		"bin_width": set.Width,
		"count":     set.Count(group),
		"skipped":   set.Skipped,
		"bins":      set.Bins(group),
	})
}

func (s *Server) handleGetThreshold(c *gin.Context) {
	th, err := s.coord.Threshold()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threshold": th, "config": s.coord.Options().Threshold})
}

type thresholdRequest struct {
	Threshold *float64 `json:"threshold" binding:"required"`
}

func (s *Server) handleSetThreshold(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.InvalidInput("threshold is required"))
		return
	}
	accepted, err := s.coord.SetThreshold(*req.Threshold)
	if err != nil {
		s.respondError(c, err)
		return
	}
	frame, err := s.coord.Frame()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threshold": accepted, "seq": frame.Seq})
}

func (s *Server) handleClassify(c *gin.Context) {
	raw, ok := c.GetQuery("score")
	if !ok {
		s.respondError(c, errors.InvalidInput("score is required"))
		return
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.respondError(c, errors.InvalidInput("score must be a number"))
		return
	}
	cls, th, err := s.coord.Classify(score)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": score, "threshold": th, "classification": cls})
}

func (s *Server) handleValueAt(c *gin.Context) {
	current, err := s.coord.Threshold()
	if err != nil {
		s.respondError(c, err)
		return
	}
	th, err := floatQuery(c, "threshold", current)
	if err != nil {
		s.respondError(c, err)
		return
	}
	sample, ok, err := s.coord.ValueAt(th)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !ok {
		s.respondError(c, core.ErrMetricsNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threshold": th, "sample": sample})
}

func (s *Server) handleIntersections(c *gin.Context) {
	curve, err := attack.ParseCurve(c.Param("curve"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	current, err := s.coord.Threshold()
	if err != nil {
		s.respondError(c, err)
		return
	}
	th, err := floatQuery(c, "threshold", current)
	if err != nil {
		s.respondError(c, err)
		return
	}
	points, err := s.coord.Intersections(curve, th)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"curve": curve, "threshold": th, "points": points})
}

type pointerRequest struct {
	Pixel *float64 `json:"pixel"`
}

func (s *Server) handlePointer(c *gin.Context) {
	view, err := viewmodel.ParseViewID(c.Param("view"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	action := c.Param("action")
	var req pointerRequest
	if action == "down" || action == "move" {
		if err := c.ShouldBindJSON(&req); err != nil || req.Pixel == nil {
			s.respondError(c, errors.InvalidInput("pixel is required"))
			return
		}
	}

	switch action {
	case "down":
		state, err := s.coord.PointerDown(view, *req.Pixel)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"view": view, "state": state})
	case "move":
		frame, changed, err := s.coord.PointerMove(view, *req.Pixel)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"view":      view,
			"state":     s.coord.DragState(view),
			"changed":   changed,
			"threshold": frame.Threshold,
			"seq":       frame.Seq,
		})
	case "up", "leave":
		release := s.coord.PointerUp
		if action == "leave" {
			release = s.coord.PointerLeave
		}
		if err := release(view); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"view": view, "state": s.coord.DragState(view)})
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown pointer action " + strconv.Quote(action)})
	}
}

func (s *Server) handleFrame(c *gin.Context) {
	frame, err := s.coord.Frame()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, frame)
}

func (s *Server) handleSummary(c *gin.Context) {
	summaries, err := s.coord.Summaries()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": summaries})
}

func (s *Server) handleReport(c *gin.Context) {
	frame, err := s.coord.Frame()
	if err != nil {
		s.respondError(c, err)
		return
	}
	ds, err := s.coord.Dataset()
	if err != nil {
		s.respondError(c, err)
		return
	}
	summaries, err := s.coord.Summaries()
	if err != nil {
		s.respondError(c, err)
		return
	}

	md := report.Markdown(report.Input{
		Dataset:     ds.Name,
		Frame:       frame,
		Summaries:   summaries,
		GeneratedAt: time.Now(),
	})
	switch c.DefaultQuery("format", "markdown") {
	case "markdown", "md":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", md)
	case "html":
		c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML(md))
	default:
		s.respondError(c, errors.InvalidInput("format must be markdown or html"))
	}
}

func (s *Server) handleListExperiments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	exps, err := s.datasets.Experiments(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"experiments": exps, "count": len(exps)})
}

// handleLoadExperiment swaps the visualization to a stored experiment. The
// threshold restarts at its initial value.
func (s *Server) handleLoadExperiment(c *gin.Context) {
	id, err := core.ParseExperimentID(c.Param("id"))
	if err != nil {
		s.respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	ctx := c.Request.Context()
	src, err := s.datasets.Experiment(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	ds, err := s.datasets.Load(ctx, src)
	if err != nil {
		s.respondError(c, err)
		return
	}
	frame, err := s.coord.Load(ds)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.logger.Info("Loaded experiment %s (%s)", id, ds.Name)
	c.JSON(http.StatusOK, gin.H{"experiment": id, "name": ds.Name, "seq": frame.Seq, "threshold": frame.Threshold})
}
