package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/config"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/handler"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/openapi"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/schema"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/server/middleware"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64 // bytes
	RateLimit       int   // requests per minute per client, 0 disables
	AuthEnabled     bool
	TokenTTL        time.Duration
	Version         string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            3000,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		MaxBodySize:     1 << 20, // 1MB
		AuthEnabled:     true,
		TokenTTL:        service.DefaultTokenTTL,
		Version:         "dev",
	}
}

// Deps are the components the routes are served by.
type Deps struct {
	Asker      handler.Asker
	Descriptor *schema.Descriptor
	Driver     string
	Registry   *connector.Registry
	Store      *config.Store
	Auth       *service.AuthService
	// MCP, when set, is mounted at /mcp behind the same authentication as
	// the question endpoints.
	MCP http.Handler
}

// Server is the top-level HTTP server. It owns the Chi router and the
// components behind it.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	r.Use(middleware.RateLimit(s.cfg.RateLimit))
	r.Use(middleware.MaxBodySize(s.cfg.MaxBodySize))

	dialect := schema.DialectName(s.deps.Driver)

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// --- OpenAPI spec (no auth required) ---
	r.Get("/openapi.json", handler.NewOpenAPIHandler(openapi.Options{
		Version:     s.cfg.Version,
		AuthEnabled: s.cfg.AuthEnabled,
	}, s.deps.Descriptor).ServeSpec)

	queryHandler := handler.NewQueryHandler(s.deps.Asker)
	schemaHandler := handler.NewSchemaHandler(s.deps.Descriptor, dialect)
	historyHandler := handler.NewHistoryHandler(s.deps.Store)
	tokenHandler := handler.NewTokenHandler(s.deps.Auth, s.cfg.TokenTTL)

	// --- API routes ---
	r.Route("/api/v1", func(r chi.Router) {

		// Question endpoints are open when auth is disabled.
		r.Group(func(r chi.Router) {
			if s.cfg.AuthEnabled {
				r.Use(middleware.Authenticate(s.deps.Auth))
			}
			r.Post("/query", queryHandler.Ask)
			r.Post("/sql", queryHandler.GenerateSQL)
			r.Get("/schema", schemaHandler.Get)
		})

		// Raw SQL and the audit log always need a credential.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.deps.Auth))
			r.Post("/execute", queryHandler.Execute)
			r.Get("/history", historyHandler.List)
		})

		r.With(middleware.RequireAPIKey(s.deps.Auth)).Post("/auth/token", tokenHandler.Issue)
	})

	if s.deps.MCP != nil {
		r.Group(func(r chi.Router) {
			if s.cfg.AuthEnabled {
				r.Use(middleware.Authenticate(s.deps.Auth))
			}
			r.Handle("/mcp", s.deps.MCP)
		})
	}

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the inventory database
// answers a ping and the config store is reachable, 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.deps.Registry.Ping(ctx, connector.InventoryService); err != nil {
		checks[connector.InventoryService] = "error: " + err.Error()
		status = "degraded"
	} else {
		checks[connector.InventoryService] = "ok"
	}

	if err := s.deps.Store.Ping(ctx); err != nil {
		checks["config"] = "error: " + err.Error()
		status = "degraded"
	} else {
		checks["config"] = "ok"
	}

	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing all database connections.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // generation plus execution
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr, "auth", s.cfg.AuthEnabled)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.deps.Registry.CloseAll()
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
