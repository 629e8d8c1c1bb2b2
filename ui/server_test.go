package ui

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gounlearn/domain/attack"
	"gounlearn/internal/viewmodel"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, load bool) (*Server, *viewmodel.Coordinator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	coord := viewmodel.NewCoordinator(viewmodel.DefaultOptions())
	if load {
		ds := viewmodel.NewDataset("", "unlearning run",
			[]float64{0.1, 0.4, 2.2, 3.0, 5.5},
			[]float64{-1, 0.9, 1.1, 1.3, 4.0},
			nil)
		_, err := coord.Load(ds)
		require.NoError(t, err)
	}

	s, err := NewServer(coord, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, coord
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestThresholdEndpoints(t *testing.T) {
	s, _ := testServer(t, true)

	w := do(t, s, http.MethodGet, "/api/threshold", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.InDelta(t, 1.25, decode(t, w)["threshold"], 1e-9)

	w = do(t, s, http.MethodPut, "/api/threshold", `{"threshold": 2.01}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.InDelta(t, 2.0, body["threshold"], 1e-9)
	assert.EqualValues(t, 2, body["seq"])

	w = do(t, s, http.MethodPut, "/api/threshold", `{"threshold": 99}`)
	assert.InDelta(t, 10.0, decode(t, w)["threshold"], 1e-9)

	w = do(t, s, http.MethodPut, "/api/threshold", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", decode(t, w)["code"])
}

func TestNotReadyBeforeLoad(t *testing.T) {
	s, _ := testServer(t, false)

	w := do(t, s, http.MethodGet, "/api/frame", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "NOT_READY", decode(t, w)["code"])

	w = do(t, s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestClosedCoordinator(t *testing.T) {
	s, coord := testServer(t, true)
	coord.Close()

	w := do(t, s, http.MethodGet, "/api/threshold", "")
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestBinsAndClassify(t *testing.T) {
	s, _ := testServer(t, true)

	w := do(t, s, http.MethodGet, "/api/bins/A", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 5, body["count"])
	assert.InDelta(t, 0.25, body["bin_width"], 1e-9)
	assert.NotEmpty(t, body["bins"])

	w = do(t, s, http.MethodGet, "/api/bins/C", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/classify?score=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.InDelta(t, 1.25, body["threshold"], 1e-9)
	cls := body["classification"].(map[string]interface{})
	assert.Equal(t, string(attack.Above), cls["side"])
	assert.Equal(t, string(attack.Full), cls["emphasis"])

	w = do(t, s, http.MethodGet, "/api/classify?score=0", "")
	cls = decode(t, w)["classification"].(map[string]interface{})
	assert.Equal(t, string(attack.Below), cls["side"])

	w = do(t, s, http.MethodGet, "/api/classify?score=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, s, http.MethodGet, "/api/classify", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricEndpoints(t *testing.T) {
	s, _ := testServer(t, true)

	w := do(t, s, http.MethodGet, "/api/value?threshold=2.2", "")
	require.Equal(t, http.StatusOK, w.Code)
	sample := decode(t, w)["sample"].(map[string]interface{})
	assert.InDelta(t, 2.2, sample["threshold"], 1e-9)
	// A: 0.1, 0.4, 2.2 are <= 2.2; B: only 4.0 is above
	assert.InDelta(t, 0.6, sample["fnr"], 1e-9)
	assert.InDelta(t, 0.2, sample["fpr"], 1e-9)

	w = do(t, s, http.MethodGet, "/api/value?threshold=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/intersections/fpr?threshold=2.2", "")
	require.Equal(t, http.StatusOK, w.Code)
	points := decode(t, w)["points"].([]interface{})
	require.NotEmpty(t, points)
	p := points[0].(map[string]interface{})
	assert.InDelta(t, 0.2, p["x"], 1e-9)
	assert.InDelta(t, 2.2, p["y"], 1e-9)

	w = do(t, s, http.MethodGet, "/api/intersections/auc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPointerDrag(t *testing.T) {
	s, coord := testServer(t, true)
	histY, _, _ := coord.Options().Scales()

	w := do(t, s, http.MethodPost, "/api/views/histogram/pointer/down", `{"pixel": 0}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(viewmodel.Idle), decode(t, w)["state"])

	line := histY.Map(1.25)
	w = do(t, s, http.MethodPost, "/api/views/histogram/pointer/down", `{"pixel": `+jsonFloat(line)+`}`)
	assert.Equal(t, string(viewmodel.Dragging), decode(t, w)["state"])

	w = do(t, s, http.MethodPost, "/api/views/histogram/pointer/move", `{"pixel": `+jsonFloat(histY.Map(3.0))+`}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["changed"])
	assert.InDelta(t, 3.0, body["threshold"], 1e-9)

	w = do(t, s, http.MethodPost, "/api/views/histogram/pointer/up", "")
	assert.Equal(t, string(viewmodel.Idle), decode(t, w)["state"])

	th, err := coord.Threshold()
	require.NoError(t, err)
	assert.InDelta(t, 3.0, th, 1e-9)

	w = do(t, s, http.MethodPost, "/api/views/histogram/pointer/move", `{"pixel": 10}`)
	assert.Equal(t, false, decode(t, w)["changed"])

	w = do(t, s, http.MethodPost, "/api/views/radar/pointer/down", `{"pixel": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, s, http.MethodPost, "/api/views/curves/pointer/wiggle", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, s, http.MethodPost, "/api/views/curves/pointer/move", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func jsonFloat(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestReportAndSummary(t *testing.T) {
	s, _ := testServer(t, true)

	w := do(t, s, http.MethodGet, "/api/report", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, w.Body.String(), "# Threshold readout: unlearning run")

	w = do(t, s, http.MethodGet, "/api/report?format=html", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1")

	w = do(t, s, http.MethodGet, "/api/report?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["groups"], 2)
}

func TestExperimentsWithoutStore(t *testing.T) {
	s, _ := testServer(t, true)

	w := do(t, s, http.MethodGet, "/api/experiments", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "CONFIG_INVALID", decode(t, w)["code"])

	w = do(t, s, http.MethodPost, "/api/experiments/0190f1c2-0000-7000-8000-000000000001/load", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDashboardAndCharts(t *testing.T) {
	s, _ := testServer(t, true)

	w := do(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := w.Body.String()
	assert.Contains(t, page, `id="histogram"`)
	assert.Contains(t, page, `id="curves-boundary"`)
	assert.Contains(t, page, "unlearning run")

	w = do(t, s, http.MethodGet, "/charts/histogram.png", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "\x89PNG"))

	w = do(t, s, http.MethodGet, "/charts/curves.svg", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))

	w = do(t, s, http.MethodGet, "/charts/curves.png?format=svg", "")
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))

	w = do(t, s, http.MethodGet, "/charts/radar.png", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, s, http.MethodGet, "/charts/histogram.gif", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/static/dashboard.js", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFrameStream(t *testing.T) {
	s, coord := testServer(t, true)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(srv.URL + "/api/frame/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	frames := make(chan viewmodel.Frame, 4)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		event := ""
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:") && event == "frame":
				var f viewmodel.Frame
				if json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &f) == nil {
					frames <- f
				}
			}
		}
		close(frames)
	}()

	first := <-frames
	assert.EqualValues(t, 1, first.Seq)
	assert.InDelta(t, 1.25, first.Threshold, 1e-9)

	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	_, err = coord.SetThreshold(2.2)
	require.NoError(t, err)

	select {
	case next := <-frames:
		assert.EqualValues(t, 2, next.Seq)
		assert.InDelta(t, 2.2, next.Threshold, 1e-9)
	case <-time.After(3 * time.Second):
		t.Fatal("no frame after threshold change")
	}
}
