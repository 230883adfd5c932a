package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/patient-feedback-server/internal/domain"
	"github.com/patient-feedback-server/internal/middleware"
	"github.com/patient-feedback-server/internal/service"
	"github.com/patient-feedback-server/internal/session"
)

// Server represents the HTTP server
type Server struct {
	cfg       *domain.Config
	router    *gin.Engine
	server    *http.Server
	intake    *service.IntakeService
	aggregate *service.AggregationService
	admin     *service.AdminService
	renderer  domain.ChartRenderer
	cookies   *session.Cookies
	limiter   *middleware.SubmitLimiter
	log       *logrus.Logger
}

// Deps bundles the collaborators the server routes requests to.
type Deps struct {
	Intake    *service.IntakeService
	Aggregate *service.AggregationService
	Admin     *service.AdminService
	Renderer  domain.ChartRenderer
	Cookies   *session.Cookies
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *domain.Config, deps Deps, logger *logrus.Logger) *Server {
	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	if cfg.Server.RequestTimeout > 0 {
		router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	}

	s := &Server{
		cfg:       cfg,
		router:    router,
		intake:    deps.Intake,
		aggregate: deps.Aggregate,
		admin:     deps.Admin,
		renderer:  deps.Renderer,
		cookies:   deps.Cookies,
		log:       logger,
	}

	s.setupRoutes()

	return s
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases server-owned background resources.
func (s *Server) Close() error {
	s.limiter.Stop()
	return nil
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	defer s.limiter.Stop()

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/", s.handleHome)

	s.limiter = middleware.NewSubmitLimiter(s.cfg.RateLimit, s.log)

	s.router.GET("/feedback", s.handleFeedbackForm)
	s.router.POST("/feedback", s.limiter.Handler(), s.handleFeedbackSubmit)
	s.router.GET("/feedback_thankyou", s.handleThankYou)
	s.router.GET("/feedback_error", s.handleAlreadySubmitted)

	s.router.GET("/bargraphs", s.handleBarGraphs)
	s.router.GET("/piecharts", s.handlePieCharts)
	s.router.GET("/overall_bargraphs", s.handleOverallBarGraphs)

	s.router.GET("/manage", s.handleManageForm)
	s.router.POST("/manage", s.handleManage)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}
