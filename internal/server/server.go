// Package server hosts the health and metrics endpoints of long-running
// commands.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/datagate/datagate/internal/config"
)

// Server wraps an http.Server with graceful shutdown.
type Server struct {
	cfg    config.ServerConfig
	logger *slog.Logger
	http   *http.Server
}

// New constructs a Server.
func New(cfg config.ServerConfig, logger *slog.Logger, handler http.Handler) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		cfg:    cfg,
		logger: logger,
		http:   srv,
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting server", "addr", ln.Addr().String())
	if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http serve: %w", err)
	}
	return nil
}

// Shutdown gracefully terminates the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Routes configures the handler built by NewHandler.
type Routes struct {
	// Health reports dependency failures; nil means always healthy.
	Health func(ctx context.Context) error
	// Status returns a JSON-encodable snapshot, e.g. the latest run results.
	Status func() any
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Errors serves /errors when set.
	Errors ErrorLog
	// Instrument wraps the mux, typically HTTPCollector.InstrumentHandler.
	Instrument func(http.Handler) http.Handler
}

// NewHandler builds the mux for /healthz and the optional routes.
func NewHandler(r Routes, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, req *http.Request) {
		body := map[string]any{"status": "ok", "time": time.Now().UTC()}
		code := http.StatusOK
		if r.Health != nil {
			if err := r.Health(req.Context()); err != nil {
				logger.Warn("health check failed", "error", err)
				body["status"] = "unhealthy"
				body["error"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, code, body)
	})

	if r.Status != nil {
		mux.HandleFunc("GET /status", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, r.Status())
		})
	}

	if r.Metrics != nil {
		mux.Handle("GET /metrics", r.Metrics)
	}

	if r.Errors != nil {
		registerErrorRoutes(mux, r.Errors, logger)
	}

	if r.Instrument != nil {
		return r.Instrument(mux)
	}
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
