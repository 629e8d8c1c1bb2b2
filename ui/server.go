package ui

import (
	"net/http"

	"gounlearn/app"
	"gounlearn/internal"
	"gounlearn/internal/api"
	"gounlearn/internal/viewmodel"

	"github.com/gin-gonic/gin"
)

// Server is the HTTP front of one visualization instance: the JSON API and
// frame stream on gin, with the chi page app mounted for charts and the
// dashboard.
type Server struct {
	router   *gin.Engine
	coord    *viewmodel.Coordinator
	datasets *app.DatasetService
	hub      *api.FrameHub
	pages    *App
	logger   *internal.Logger
}

// NewServer wires the routes for coord. datasets may be nil, in which case
// the experiment endpoints report that no store is configured.
func NewServer(coord *viewmodel.Coordinator, datasets *app.DatasetService) (*Server, error) {
	pages, err := NewApp(coord)
	if err != nil {
		return nil, err
	}
	if datasets == nil {
		datasets = app.NewDatasetService(nil)
	}

	s := &Server{
		router:   gin.New(),
		coord:    coord,
		datasets: datasets,
		hub:      api.NewFrameHub(coord),
		pages:    pages,
		logger:   internal.NewDefaultLogger("Server"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/", gin.WrapH(s.pages))
	s.router.GET("/charts/:file", gin.WrapH(s.pages))
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api", noStore())
	{
		api.GET("/bins/:group", s.handleBins)
		api.GET("/threshold", s.handleGetThreshold)
		api.PUT("/threshold", s.handleSetThreshold)
		api.GET("/classify", s.handleClassify)
		api.GET("/value", s.handleValueAt)
		api.GET("/intersections/:curve", s.handleIntersections)
		api.POST("/views/:view/pointer/:action", s.handlePointer)
		api.GET("/frame", s.handleFrame)
		api.GET("/frame/stream", s.hub.HandleSSE)
		api.GET("/report", s.handleReport)
		api.GET("/summary", s.handleSummary)

		api.GET("/experiments", s.handleListExperiments)
		api.POST("/experiments/:id/load", s.handleLoadExperiment)
	}
}

// Handler exposes the router for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server on addr until it fails
func (s *Server) Start(addr string) error {
	s.logger.Info("Listening on %s", addr)
	return s.router.Run(addr)
}

// Close ends every frame stream
func (s *Server) Close() {
	s.hub.Close()
}
