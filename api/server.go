// Package api is the HTTP layer: a gin JSON API for the audit workflow and
// a chi ops router for health and profiling endpoints.
package api

import (
	"log"

	"github.com/gin-gonic/gin"

	"debias/internal/config"
	"debias/internal/correct"
	"debias/internal/detect"
	"debias/internal/profiling"
	"debias/internal/registry"
	"debias/ports"
)

// Server hosts the audit API.
type Server struct {
	router    *gin.Engine
	config    *config.Config
	store     ports.FrameStore
	registry  *registry.Registry
	imbalance *detect.ImbalanceDetector
	skew      *detect.SkewnessDetector
	engine    *correct.Engine
	profiler  *profiling.Profiler
}

// NewServer wires the API over the engine components
func NewServer(
	cfg *config.Config,
	st ports.FrameStore,
	reg *registry.Registry,
	imbalance *detect.ImbalanceDetector,
	skew *detect.SkewnessDetector,
	engine *correct.Engine,
) *Server {
	gin.SetMode(cfg.Server.GinMode)
	s := &Server{
		router:    gin.Default(),
		config:    cfg,
		store:     st,
		registry:  reg,
		imbalance: imbalance,
		skew:      skew,
		engine:    engine,
		profiler:  profiling.NewProfiler(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")

	api.POST("/upload", s.handleUpload)
	api.POST("/preview", s.handlePreview)
	api.POST("/select_features", s.handleSelectFeatures)
	api.POST("/column_types", s.handleColumnTypes)
	api.POST("/preprocess", s.handlePreprocess)

	bias := api.Group("/bias")
	bias.POST("/detect", s.handleBiasDetect)
	bias.POST("/fix", s.handleBiasFix)
	bias.POST("/visualize", s.handleBiasVisualize)

	skew := api.Group("/skewness")
	skew.POST("/detect", s.handleSkewnessDetect)
	skew.POST("/fix", s.handleSkewnessFix)
	skew.POST("/visualize", s.handleSkewnessVisualize)

	api.POST("/report", s.handleReport)
}

// Start runs the API server (blocking)
func (s *Server) Start(addr string) error {
	log.Printf("[API] Listening on http://%s", addr)
	return s.router.Run(addr)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
