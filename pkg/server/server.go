// Package server exposes the operational HTTP endpoints: health,
// prometheus metrics, and cache statistics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cascadehq/cascade/pkg/cache"
	"github.com/cascadehq/cascade/pkg/metrics"
)

// Server is the operational endpoint listener.
type Server struct {
	httpServer *http.Server
	cache      *cache.Manager
}

// Option configures the server.
type Option func(*Server)

// WithCache wires the cache manager so /stats can report hit rates.
func WithCache(mgr *cache.Manager) Option {
	return func(s *Server) {
		s.cache = mgr
	}
}

// New creates the ops server listening on addr.
func New(addr string, m *metrics.Metrics, opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(m),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes(m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if reg := m.Registry(); reg != nil {
		r.Get("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP)
	}

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"cache": s.cache.Stats(),
		})
	})

	return r
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("Ops server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ops server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
