// Package api provides the HTTP API of the grid mapper. It uses Echo to
// accept contest logs for map generation and to serve maps kept by the
// filesystem store.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"evalgo.org/gridmapper/internal/auth"
	"evalgo.org/gridmapper/internal/config"
	"evalgo.org/gridmapper/internal/generator"
	"evalgo.org/gridmapper/internal/refdata"
	"evalgo.org/gridmapper/internal/storage"
	"evalgo.org/gridmapper/internal/validation"
	"evalgo.org/gridmapper/internal/version"
)

// Server represents the grid mapper API server.
type Server struct {
	echo       *echo.Echo
	config     *config.Config
	generator  *generator.Generator
	validator  *validation.Validator
	store      storage.Store
	tables     *refdata.Tables
	log        *logrus.Logger
	authMiddle *auth.Middleware
	started    time.Time
}

// New creates a new API server instance.
func New(cfg *config.Config, gen *generator.Generator, store storage.Store, tables *refdata.Tables, logger *logrus.Logger) *Server {
	e := echo.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Server.Debug

	// Set custom error handler
	e.HTTPErrorHandler = HTTPErrorHandler

	server := &Server{
		echo:       e,
		config:     cfg,
		generator:  gen,
		validator:  validation.New(tables),
		store:      store,
		tables:     tables,
		log:        logger,
		authMiddle: auth.NewMiddleware(cfg),
		started:    time.Now(),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	// Logger middleware
	s.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${path} ${id} (${latency_human})\n",
		Output: s.log.Writer(),
	}))

	// Recover middleware
	s.echo.Use(middleware.Recover())

	// Security headers middleware
	s.echo.Use(SecurityHeaders)

	// CORS middleware
	if len(s.config.Security.AllowedOrigins) > 0 {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.config.Security.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, auth.HeaderAPIKey},
		}))
	}

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Rate limiting
	if s.config.Security.RateLimit > 0 {
		s.echo.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(s.config.Security.RateLimit),
		)))
	}
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/", s.healthCheck)

	// Signed downloads from the filesystem store
	s.echo.GET(storage.MapsRoute+"*", s.serveMap, ValidateMapKey, ValidateSignedQuery)
	s.echo.HEAD(storage.MapsRoute+"*", s.serveMap, ValidateMapKey, ValidateSignedQuery)

	api := s.echo.Group("/api")
	if s.config.Server.BodyLimit != "" {
		api.Use(middleware.BodyLimit(s.config.Server.BodyLimit))
	}
	api.Use(ValidateContentType)
	api.Use(ValidateAcceptHeader)

	api.POST("/generate-map", s.generateMap, s.authMiddle.RequireGenerate)
	api.POST("/validate", s.validateRequest, s.authMiddle.RequireAuth)
	api.GET("/reference", s.reference)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.log.WithFields(logrus.Fields{
		"address": addr,
		"storage": s.store.Backend(),
		"version": version.Version,
		"debug":   s.config.Server.Debug,
	}).Info("Starting grid mapper API server")

	// Configure server timeouts
	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout

	// Start server
	var err error
	if s.config.Server.TLSEnabled {
		err = s.echo.StartTLS(addr, s.config.Server.TLSCert, s.config.Server.TLSKey)
	} else {
		err = s.echo.Start(addr)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down grid mapper API server")

	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	s.log.Info("Server shutdown complete")
	return nil
}

// healthCheck handles health check requests.
// @Summary Health check
// @Description Report service status, storage backend and uptime
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Router /health [get]
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		Service:    "gridmapper",
		Version:    version.Version,
		Storage:    s.store.Backend(),
		Bands:      len(s.tables.Bands()),
		Continents: len(s.tables.ContinentCodes()),
		Uptime:     humanize.RelTime(s.started, time.Now(), "", ""),
	})
}

// ServeHTTP allows Server to implement http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
