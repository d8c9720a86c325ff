package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dhruvsoni1802/browser-webdriver/internal/pool"
	"github.com/dhruvsoni1802/browser-webdriver/internal/session"
)

// Server is the gateway's HTTP front end
type Server struct {
	router *chi.Mux
	http   *http.Server
}

// NewServer creates a new HTTP server. writeTimeout should exceed the
// WebDriver request timeout so driver errors reach the client.
func NewServer(port string, manager *session.Manager, loadBalancer *pool.LoadBalancer, writeTimeout time.Duration) *Server {
	router := chi.NewRouter()

	// Request id first so every later log line carries it
	router.Use(middleware.RequestID)
	router.Use(RecoveryMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           600,
	}))

	handlers := NewHandlers(manager, loadBalancer)

	router.Route("/sessions", func(r chi.Router) {
		r.Post("/", handlers.CreateSession)
		r.Get("/", handlers.ListSessions)
		r.Post("/attach", handlers.AttachSession)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handlers.GetSession)
			r.Delete("/", handlers.DestroySession)
			r.Post("/resume", handlers.ResumeSession)
			r.Put("/rename", handlers.RenameSession)

			r.Route("/alert", func(r chi.Router) {
				r.Get("/text", handlers.GetAlertText)
				r.Post("/text", handlers.SendAlertText)
				r.Post("/accept", handlers.AcceptAlert)
				r.Post("/dismiss", handlers.DismissAlert)
			})
		})
	})

	router.Get("/metrics", handlers.Metrics)
	router.Get("/healthz", handlers.Health)

	if writeTimeout <= 0 {
		writeTimeout = 15 * time.Second
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              ":" + port,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Handler exposes the router, mainly for httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving requests until Shutdown is called
func (s *Server) Start() error {
	slog.Info("gateway listening", "addr", s.http.Addr)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("drain HTTP server: %w", err)
	}
	slog.Info("gateway stopped")
	return nil
}
