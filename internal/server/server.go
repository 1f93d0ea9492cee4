package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackzampolin/etho/internal/analysis"
	"github.com/jackzampolin/etho/internal/api"
	"github.com/jackzampolin/etho/internal/config"
	"github.com/jackzampolin/etho/internal/gemini"
	"github.com/jackzampolin/etho/internal/prompts/ethological"
	"github.com/jackzampolin/etho/internal/server/endpoints"
	"github.com/jackzampolin/etho/internal/svcctx"
)

// Server is the main Etho HTTP server. It owns the Gemini client lifecycle:
// the client is created on Start and closed on shutdown.
type Server struct {
	httpServer   *http.Server
	geminiClient *gemini.Client
	analyzer     *analysis.Analyzer
	configMgr    *config.Manager
	logger       *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8000)
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8000"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}

	s := &Server{
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		MaxUploadBytes: cfg.ConfigManager.Get().MaxUploadBytes(),
	}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      withCORS(s.withServices(mux)),
		ReadTimeout:  10 * time.Minute, // Large uploads stream slowly
		WriteTimeout: 10 * time.Minute, // Analysis holds the response open
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server and the Gemini client.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	cfg := s.configMgr.Get()
	if err := cfg.Validate(); err != nil {
		s.setNotRunning()
		return fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := gemini.New(ctx, cfg.ToClientConfig())
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to create gemini client: %w", err)
	}
	s.geminiClient = client
	s.logger.Info("gemini client ready", "model", client.Model())

	instruction := ethological.Instruction(analysis.SchemaJSON())
	s.analyzer = analysis.New(client, instruction, cfg.AnalyzerOptions(), s.logger)

	// Hot reload adjusts orchestration timing without restarting
	s.configMgr.OnChange(func(c *config.Config) {
		s.analyzer.Reconfigure(c.AnalyzerOptions())
		s.logger.Info("analyzer reconfigured from config",
			"poll_interval_seconds", c.Gemini.PollIntervalSeconds,
			"infer_timeout_seconds", c.Gemini.InferTimeoutSeconds)
	})

	// Create services struct for context enrichment
	s.services = &svcctx.Services{
		Analyzer:  s.analyzer,
		ConfigMgr: s.configMgr,
		Logger:    s.logger,
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server and Gemini client.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.geminiClient != nil {
		if err := s.geminiClient.Close(); err != nil {
			s.logger.Error("gemini client close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Analyzer returns the analysis orchestrator.
// Returns nil if the server hasn't started yet.
func (s *Server) Analyzer() *analysis.Analyzer {
	return s.analyzer
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withCORS allows cross-origin requests from any origin. The service fronts
// a browser upload form during development.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until the analyzer is ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.analyzer == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
