// Package server assembles the HTTP surface: router, middleware chain, and
// lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/srmlabs/logmill/internal/errors"
	"github.com/srmlabs/logmill/internal/server/handlers"
	"github.com/srmlabs/logmill/internal/server/middleware"
	"github.com/srmlabs/logmill/pkg/logjob"
	"github.com/srmlabs/logmill/pkg/logreader"
)

// Timeouts configures the http.Server deadlines.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// DefaultTimeouts returns the default server deadlines.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Read:  30 * time.Second,
		Write: 30 * time.Second,
		Idle:  120 * time.Second,
	}
}

// Server is the HTTP front end for the job and log endpoints.
type Server struct {
	host   string
	port   int
	router chi.Router
	http   *http.Server
	logger *zap.Logger
}

// Deps are the domain services the routes are built over.
type Deps struct {
	Jobs   *logjob.Service
	Reader *logreader.Reader
	Logger *zap.Logger
}

// New creates a server with all routes registered.
func New(host string, port int, deps Deps) *Server {
	return NewWithTimeouts(host, port, deps, DefaultTimeouts())
}

// NewWithTimeouts creates a server with explicit http.Server deadlines.
func NewWithTimeouts(host string, port int, deps Deps, timeouts Timeouts) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		host:   host,
		port:   port,
		logger: logger,
	}
	s.router = s.buildRouter(deps)
	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      s.router,
		ReadTimeout:  timeouts.Read,
		WriteTimeout: timeouts.Write,
		IdleTimeout:  timeouts.Idle,
	}
	return s
}

func (s *Server) buildRouter(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestLogger(s.logger))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.WriteError(w, req, http.StatusNotFound, apperrors.CodeNotFound,
			fmt.Sprintf("no route for %s %s", req.Method, req.URL.Path), nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.WriteError(w, req, http.StatusMethodNotAllowed, apperrors.CodeMethodNotAllowed,
			fmt.Sprintf("method %s not allowed for %s", req.Method, req.URL.Path), nil)
	})

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", handlers.VersionHandler)

	if deps.Jobs != nil {
		jobs := handlers.NewJobsHandler(deps.Jobs, s.logger)
		r.Post("/jobs", jobs.Submit)
		r.Get("/jobs/{id}", jobs.Status)
		r.Get("/jobs/{id}/artifact", jobs.Artifact)
	}

	if deps.Reader != nil {
		logs := handlers.NewLogsHandler(deps.Reader, s.logger)
		r.Get("/logs", logs.Read)
		r.Get("/logs/{date}/rotation/{n}", logs.Rotation)
	}

	return r
}

// Handler returns the root handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Start serves until the listener fails or Shutdown runs. It always returns
// a non-nil error; after a clean Shutdown that error is http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.http.Addr))
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
