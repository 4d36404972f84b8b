// Package server provides the HTTP API for the word embedding service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neill-k/w2vapi/internal/config"
	"github.com/neill-k/w2vapi/internal/similarity"
	"github.com/neill-k/w2vapi/internal/vocab"
)

// Server is the HTTP server for the embedding API.
type Server struct {
	provider   *vocab.Provider
	ranker     *similarity.Ranker
	config     *config.Config
	logger     *zap.Logger
	server     *http.Server
	instanceID string
}

// NewServer creates a server with the given dependencies.
func NewServer(
	provider *vocab.Provider,
	ranker *similarity.Ranker,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		provider:   provider,
		ranker:     ranker,
		config:     cfg,
		logger:     logger,
		instanceID: uuid.NewString(),
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleRoot)
	r.Post("/embedding", s.handleEmbedding)
	r.Post("/embeddings", s.handleEmbeddings)
	r.Get("/similar/{word}", s.handleSimilar)
	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server",
		zap.String("addr", addr),
		zap.String("instance_id", s.instanceID),
		zap.String("model", s.config.Model.Name),
	)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
