// Package api provides the read-side HTTP surface of the mailcourier service.
// It exposes email record lookups, delivery statistics, a manual retry
// trigger, and the health endpoint. The API never creates or mutates email
// content; all writes flow through the intake/dispatch pipeline.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mailcourier/internal/config"
)

// Server encapsulates the HTTP dependencies of the read API, allowing for
// easy injection during testing.
type Server struct {
	Config *config.Config
	Logger *slog.Logger

	HealthProbes []HealthProbe

	router *chi.Mux
}

// NewServer initializes the router and prepares the server for route
// mounting. The caller mounts routes (via MountRoutes) after construction so
// tests can customize route registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config: cfg,
		Logger: logger,
		router: chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// MountRoutes registers the global middleware chain and all routes. The
// middleware order matters: Recoverer is outermost so every panic is caught,
// RequestID runs before the logger so log lines carry the correlation ID.
func (s *Server) MountRoutes(emails *EmailHandler) {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger))

	s.router.Route("/v1", func(r chi.Router) {
		emails.RegisterRoutes(r)
	})

	s.router.Get("/health", s.HandleHealth)
}
