// Package web exposes the validation service over HTTP.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/sheetcheck/internal/config"
	"github.com/JonMunkholm/sheetcheck/internal/report"
	"github.com/JonMunkholm/sheetcheck/internal/service"
	mw "github.com/JonMunkholm/sheetcheck/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Options configures a Server.
type Options struct {
	// MaxUploadSize caps the multipart request body.
	MaxUploadSize int64

	// RunTimeout bounds a single validation request. Zero means no limit.
	RunTimeout time.Duration

	// APIKeys enables X-API-Key authentication on /api when non-empty.
	APIKeys []string
}

// Server is the HTTP front end of the validation service.
type Server struct {
	service *service.Service
	opts    Options
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server with its routes installed.
func NewServer(svc *service.Service, opts Options) *Server {
	s := &Server{
		service: svc,
		opts:    opts,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.opts.APIKeys))

		r.Get("/schemas", s.handleListSchemas)
		r.Get("/schemas/{key}", s.handleGetSchema)
		r.Post("/validate/{key}", s.handleValidate)
	})
}

// Start listens on cfg.Addr() until Shutdown is called.
func (s *Server) Start(cfg config.ServerConfig) error {
	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := report.WriteJSON(w, v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
