// Package server exposes the analysis and query operations over HTTP.
//
// The API is JSON only:
//
//	GET /healthz
//	GET /v1/analyze?path=<project-or-solution>
//	GET /v1/search?q=<term>&prerelease=&skip=&take=
//	GET /v1/packages/{id}/versions?prerelease=
//	GET /v1/packages/{id}/latest?prerelease=
//	GET /v1/packages/{id}/{version}
//
// Every request carries an X-Request-Id (generated when the client sends
// none) and is logged with method, path, status and duration.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/depscout/depscout/pkg/analyze"
	"github.com/depscout/depscout/pkg/query"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// serve context is cancelled.
const shutdownTimeout = 10 * time.Second

// Config wires the server's collaborators.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Query serves the cached registry lookups.
	Query *query.Orchestrator

	// Analyzer resolves manifest dependencies.
	Analyzer *analyze.Analyzer

	// Logger receives request logs. Nil falls back to the default logger.
	Logger *log.Logger
}

// Server is the HTTP exposition layer.
type Server struct {
	cfg    Config
	router chi.Router
}

// New creates a server with its routes and middleware registered.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	s := &Server{cfg: cfg}
	s.router = s.routes()
	return s
}

// Handler returns the routing tree, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.cfg.Logger.Info("http server stopped")
	return nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.cfg.Logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/analyze", s.handleAnalyze)
		r.Get("/search", s.handleSearch)
		r.Route("/packages/{id}", func(r chi.Router) {
			r.Get("/versions", s.handleVersions)
			r.Get("/latest", s.handleLatest)
			r.Get("/{version}", s.handleMetadata)
		})
	})
	return r
}
