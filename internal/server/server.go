// Package server provides the HTTP API for postsearch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ezpogue/IRProjectPhase2/internal/config"
	"github.com/ezpogue/IRProjectPhase2/internal/search"
)

// Server is the HTTP server for the postsearch API.
type Server struct {
	engine   *search.Engine
	config   *config.ServerConfig
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	server   *http.Server
}

// NewServer creates a server with the given dependencies. gatherer backs /metrics;
// nil serves the default registry.
func NewServer(
	engine *search.Engine,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	gatherer prometheus.Gatherer,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		engine:   engine,
		config:   cfg,
		logger:   logger,
		gatherer: gatherer,
	}
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(s.logRequests)

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/profiles", s.handleProfiles)
	r.Post("/api/v1/index/rebuild", s.handleRebuild)
	r.Get("/api/v1/index/builds", s.handleBuilds)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// logRequests logs each request through zap at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
