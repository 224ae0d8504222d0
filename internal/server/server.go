// Package server provides the HTTP API for the hike planner.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/hikeplanner/internal/config"
	"github.com/hyperjump/hikeplanner/internal/trails"
)

// WatchService manages the watched import directories.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the trail API.
type Server struct {
	svc        *trails.Service
	config     *config.Config
	configPath string
	configMu   sync.Mutex
	watch      WatchService
	logger     *zap.Logger
	server     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithWatch enables the import directory endpoints. Changes are saved to configPath
// when it is set.
func WithWatch(watch WatchService, configPath string) Option {
	return func(s *Server) {
		s.watch = watch
		s.configPath = configPath
	}
}

// NewServer creates a server over svc. cfg supplies the listen address and status details.
func NewServer(svc *trails.Service, cfg *config.Config, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, config: cfg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.config.Debug {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Route("/trails", func(r chi.Router) {
			r.Get("/", s.handleSearchQuery)
			r.Post("/", s.handleCreateTrail)
			r.Post("/search", s.handleSearch)
			r.Post("/explain", s.handleExplain)
			r.Get("/top", s.handleTopRated)
			r.Get("/recommended", s.handleRecommended)
			r.Get("/difficulty/{difficulty}", s.handleByDifficulty)
			r.Get("/park/{park}", s.handleByPark)

			r.Route("/{region}/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetTrail)
				r.Put("/", s.handleUpdateTrail)
				r.Delete("/", s.handleDeleteTrail)
				r.Post("/rating", s.handleRating)
				r.Post("/deactivate", s.handleDeactivate)
				r.Post("/reactivate", s.handleReactivate)
			})
		})
		r.Get("/regions/{region}/trails", s.handleByRegion)

		r.Get("/import/directories", s.handleImportDirectoriesList)
		r.Post("/import/directories", s.handleImportDirectoriesAdd)
		r.Delete("/import/directories", s.handleImportDirectoriesRemove)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
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
