// Package report exposes the run's observability surface over HTTP: the
// credential pool snapshot and the checkpoint progress count, for an external
// dashboard to poll. Purely observational; nothing here feeds back into the
// core.
package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shelfmark/enrich/internal/credential"
)

// PoolStats is the slice of the credential pool the server reads.
type PoolStats interface {
	Stats() []credential.KeyStats
}

// Progress is the checkpoint's completion counter.
type Progress interface {
	Count() int
}

// Server serves the stats endpoint.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the server for the given listen address.
func NewServer(addr string, pool PoolStats, progress Progress, totalItems int, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, pool.Stats(), logger)
	})

	r.Get("/progress", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]int{
			"completed": progress.Count(),
			"total":     totalItems,
		}, logger)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("stats endpoint listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("stats endpoint failed", "error", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
