package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/shrike/internal/activity"
	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/rules"
	"github.com/opensource-finance/shrike/internal/scanner"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, sc *scanner.Scanner, act *activity.Service, scanCfg domain.ScannerConfig, version string) *Server {
	handler := NewHandler(repo, cache, bus, engine, sc, act, scanCfg, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (tenant required)
	router.Route("/", func(r chi.Router) {
		r.Use(TenantMiddleware)

		// Merchant twins
		r.Post("/merchants", handler.CreateMerchant)
		r.Post("/merchants/generate", handler.GenerateMerchants)
		r.Get("/merchants", handler.ListMerchants)
		r.Get("/merchants/{id}", handler.GetMerchant)

		// Twin events
		r.Post("/merchants/{id}/events", handler.ApplyEvent)

		// Diagnostics
		r.Get("/merchants/{id}/scan", handler.ScanMerchant)
		r.Get("/merchants/{id}/health", handler.MerchantHealth)
		r.Post("/fleet/scan", handler.ScanFleet)

		// Rule catalog (read-only; the catalog is fixed)
		r.Get("/rules", handler.ListRules)
		r.Get("/rules/{key}", handler.GetRule)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
