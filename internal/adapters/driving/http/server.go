package http

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	maxUpload  int64
	logger     *slog.Logger

	// Services
	authService      driving.AuthService
	userService      driving.UserService
	ingestionService driving.IngestionService
	queryService     driving.QueryService
	runtimeConfig    *domain.RuntimeConfig

	// Readiness checks by component name ("database", "redis", "generation")
	checks map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	Version     string
	CORSOrigins []string

	// MaxUploadBytes bounds document uploads
	MaxUploadBytes int64

	// WriteTimeout must exceed the query timeout
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		CORSOrigins:    []string{"http://localhost:9002", "http://localhost:3000"},
		MaxUploadBytes: 32 << 20,
		WriteTimeout:   90 * time.Second,
	}
}

// Services bundles the driving ports served over HTTP
type Services struct {
	Auth      driving.AuthService
	Users     driving.UserService
	Ingestion driving.IngestionService
	Query     driving.QueryService
	Runtime   *domain.RuntimeConfig
}

// NewServer creates a new HTTP server. checks may be nil.
func NewServer(cfg Config, svc Services, checks map[string]Pinger) *Server {
	defaults := DefaultConfig()
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		maxUpload:        cfg.MaxUploadBytes,
		logger:           cfg.Logger,
		authService:      svc.Auth,
		userService:      svc.Users,
		ingestionService: svc.Ingestion,
		queryService:     svc.Query,
		runtimeConfig:    svc.Runtime,
		checks:           checks,
	}

	s.setupRoutes()

	recovery := NewRecoveryMiddleware(cfg.Logger)
	logging := NewLoggingMiddleware(cfg.Logger)
	cors := NewCORSMiddleware(cfg.CORSOrigins)
	s.handler = recovery.Handler(logging.Handler(cors.Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)
	member := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(authMiddleware.RequireAdmin(h))
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Auth endpoints (public)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.router.HandleFunc("POST /api/v1/auth/refresh", s.handleRefresh)

	// Setup endpoint (public, one-time use)
	s.router.HandleFunc("POST /api/v1/setup", s.handleSetup)

	s.router.Handle("POST /api/v1/auth/logout", member(s.handleLogout))
	s.router.Handle("GET /api/v1/me", member(s.handleGetMe))

	// Admin-only user management
	s.router.Handle("GET /api/v1/users", admin(s.handleListUsers))
	s.router.Handle("POST /api/v1/users", admin(s.handleCreateUser))
	s.router.Handle("DELETE /api/v1/users/{id}", admin(s.handleDeleteUser))

	// Policy documents: members read, admins write
	s.router.Handle("GET /api/v1/documents", member(s.handleListDocuments))
	s.router.Handle("GET /api/v1/documents/{id}", member(s.handleGetDocument))
	s.router.Handle("POST /api/v1/documents", admin(s.handleUploadDocument))
	s.router.Handle("DELETE /api/v1/documents/{id}", admin(s.handleDeleteDocument))

	// Questions and history
	s.router.Handle("POST /api/v1/query", member(s.handleQuery))
	s.router.Handle("GET /api/v1/history", member(s.handleListHistory))
	s.router.Handle("GET /api/v1/history/{id}", member(s.handleGetHistory))

	s.router.Handle("GET /api/v1/status", member(s.handleStatus))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
