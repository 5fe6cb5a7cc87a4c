// Package web hosts the kiosk HTTP API: session control, probe submission,
// event streaming and the attendance day view.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ssematimba/gate-check/internal/policy"
	"github.com/ssematimba/gate-check/internal/web/handlers"
	"github.com/ssematimba/gate-check/internal/web/middleware"
)

// Server represents the kiosk API server.
type Server struct {
	router         *chi.Mux
	httpServer     *http.Server
	sessionManager *handlers.SessionManager
	evaluator      *policy.Evaluator
}

// NewServer creates a new kiosk API server.
func NewServer(host string, port int, sessionManager *handlers.SessionManager, deps handlers.SessionDeps, evaluator *policy.Evaluator) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:         r,
		sessionManager: sessionManager,
		evaluator:      evaluator,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(5 * time.Minute))
	r.Use(middleware.CORS())

	// Set up routes
	s.setupRoutes(deps)

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Long timeout for SSE streams
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting kiosk API server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server and stops every session so the
// camera devices are released.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down kiosk API server...")

	if s.sessionManager != nil {
		s.sessionManager.StopAll()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
