package ui

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"riskcorr/app"
	"riskcorr/internal"
)

// Server exposes the analysis engine over HTTP
type Server struct {
	router  *gin.Engine
	service *app.AnalysisService
	logger  *internal.Logger
}

// NewServer creates a new web server instance
func NewServer(service *app.AnalysisService, logger *internal.Logger, ginMode string) *Server {
	gin.SetMode(ginMode)
	s := &Server{
		router:  gin.Default(),
		service: service,
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api/v1")
	{
		api.POST("/analysis", s.handleAnalysis)
		api.POST("/analysis/report", s.handleAnalysisReport)
	}
}

// Router exposes the underlying engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server on the given port
func (s *Server) Run(port string) error {
	s.logger.Info("[Server] listening on :%s", port)
	if err := s.router.Run(":" + port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
