// Package server provides the HTTP API for biorag.
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

	"github.com/geronlab/biorag/internal/config"
	"github.com/geronlab/biorag/internal/ingest"
	"github.com/geronlab/biorag/internal/rag"
	"github.com/geronlab/biorag/internal/storage"
	"github.com/geronlab/biorag/internal/vector"
)

// Server is the HTTP server for the biorag API.
type Server struct {
	pipeline *rag.Pipeline
	builder  *ingest.Builder
	index    *vector.Handle
	storage  storage.Storage
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server

	buildMu      sync.Mutex
	buildRunning bool
}

// NewServer creates a server with the given dependencies.
func NewServer(
	pipeline *rag.Pipeline,
	builder *ingest.Builder,
	index *vector.Handle,
	storage storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		pipeline: pipeline,
		builder:  builder,
		index:    index,
		storage:  storage,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/query", s.handleQuery)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Post("/api/v1/admin/build-index", s.handleBuildIndex)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
