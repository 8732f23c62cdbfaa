// Package server exposes trailhead's read surfaces over a localhost
// JSON API, for editor integrations and debugging. It is a thin shell
// around the provenance engine; nothing here mutates prompt state
// except the config endpoint.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/trailhead/internal/config"
	"github.com/thebtf/trailhead/internal/provenance"
)

// Service is the introspection HTTP service.
type Service struct {
	version   string
	cfg       *config.Config
	engine    *provenance.Engine
	router    chi.Router
	startTime time.Time
}

// New creates a Service over an engine.
func New(engine *provenance.Engine, cfg *config.Config, version string) *Service {
	svc := &Service{
		version:   version,
		cfg:       cfg,
		engine:    engine,
		router:    chi.NewRouter(),
		startTime: time.Now(),
	}
	svc.setupRoutes()
	return svc
}

func (s *Service) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleSessionSummary)
		r.Get("/uncommitted", s.handleUncommitted)
		r.Get("/trailer", s.handleTrailer)
		r.Get("/config/{key}", s.handleGetConfig)
		r.Put("/config/{key}", s.handleSetConfig)
	})
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Run serves on localhost until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", s.cfg.Port()),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Introspection server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// requestLogger logs each request with zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("Request")
	})
}
