// Package server implements the HTTP API: streaming chat, geolocation echo,
// document and merchant-code ingestion triggers, merchant lookups, and the
// usual health, readiness, and metrics endpoints.
// The server is started by the `wwmc serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wwmc-ai/wwmc-go/internal/logging"
)

// New constructs a Server from the provided dependencies and config.
func New(deps Deps, cfg *Config) (*Server, error) {
	if deps.Chat == nil {
		return nil, fmt.Errorf("server: chat service must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must be long enough for streaming responses and
		// full-directory ingestion runs.
		cfg.WriteTimeout = 10 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	s := &Server{
		deps:    deps,
		cfg:     cfg,
		log:     cfg.Logger,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(cfg.Registry),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.Logger)
	s.stopRL = stopRL

	// Protected API routes go through rate limiting and auth; operational
	// endpoints (health, ready, metrics) stay open so probes and scrapers
	// need no credentials.
	protect := func(name string, h http.HandlerFunc) http.Handler {
		return s.metrics.instrument(name, rl.middleware(authMiddleware(cfg.APIKey, h)))
	}
	open := func(name string, h http.Handler) http.Handler {
		return s.metrics.instrument(name, h)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/chat", protect("chat", s.handleChat))
	mux.Handle("GET /api/geo", protect("geo", s.handleGeo))
	mux.Handle("GET /api/ingest/documents", protect("ingest_documents", s.handleIngestDocuments))
	mux.Handle("GET /api/ingest/mcc", protect("ingest_mcc", s.handleIngestMCC))
	mux.Handle("GET /api/mcc", protect("mcc", s.handleMCC))
	mux.Handle("GET /api/health", open("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", open("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", open("metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(cfg.Logger, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the fully assembled HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening",
			slog.String("addr", s.httpServer.Addr),
			slog.Bool("auth", s.cfg.APIKey != ""),
			slog.Bool("augmented", s.deps.Chat.Augmented()),
			slog.Bool("debug", s.cfg.Debug),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// writeJSONError writes a JSON error body with the given status.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Message: message})
}
