// Package server exposes discovery runs over HTTP: start, status, stop, and
// downloads of the last result set and summary.
package server

import (
	"context"
	"net/http"
	"time"

	"profilescout/pkg/discovery"
	"profilescout/pkg/logger"
)

// Pinger is a dependency checked by the health endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies for the HTTP server
type Server struct {
	addr       string
	router     http.Handler
	httpServer *http.Server
	jobs       *jobs
	metrics    http.Handler
	health     map[string]Pinger
	logger     logger.Logger
}

// Option customizes a Server
type Option func(*Server)

// WithMetricsHandler serves h at /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithHealthCheck adds a named dependency to /healthz
func WithHealthCheck(name string, p Pinger) Option {
	return func(s *Server) { s.health[name] = p }
}

// WithOnFinished registers a callback receiving every finished result
func WithOnFinished(fn func(*discovery.Result)) Option {
	return func(s *Server) { s.jobs.onFinished = fn }
}

// WithNow injects the clock used for job timestamps
func WithNow(now func() time.Time) Option {
	return func(s *Server) { s.jobs.now = now }
}

// New creates a server listening on addr once started
func New(addr string, launch Launcher, log logger.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}
	s := &Server{
		addr:   addr,
		jobs:   &jobs{launch: launch, now: time.Now},
		health: make(map[string]Pinger),
		logger: log.WithField("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown. It returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	s.logger.InfoWithFields("Job API listening", map[string]interface{}{"addr": s.addr})
	return s.httpServer.ListenAndServe()
}

// Shutdown cancels a running job, waits for it to finish, then stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.jobs.stop(); err == nil {
		s.logger.Info("Stopping running job")
	}
	if err := s.jobs.wait(ctx); err != nil {
		return err
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Wait blocks until the current job, if any, ends
func (s *Server) Wait(ctx context.Context) error {
	return s.jobs.wait(ctx)
}
