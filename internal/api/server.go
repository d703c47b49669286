package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/lead-engine/internal/config"
	"github.com/ignite/lead-engine/internal/pkg/logger"
)

// Server wraps the HTTP listener and router.
type Server struct {
	config   config.ServerConfig
	router   *chi.Mux
	handlers *Handlers
	server   *http.Server
	log      *logger.Logger
}

// NewServer creates the API server with all routes mounted.
func NewServer(cfg config.ServerConfig, handlers *Handlers) *Server {
	return &Server{
		config:   cfg,
		router:   SetupRoutes(handlers),
		handlers: handlers,
		log:      logger.New("server"),
	}
}

// Start begins serving. Blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info("starting API server", "addr", addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.log.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}
