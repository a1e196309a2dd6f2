package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/fews-client/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter is what the server needs from the running exporter.
type Exporter interface {
	sharedobs.ReadinessChecker
	// LastDataset returns the most recently published dataset and its export ID.
	LastDataset() (exportID string, ds *domain.Dataset, ok bool)
}

// Server exposes health, readiness, metrics, and latest-dataset HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /dataset routes.
func NewServer(addr string, exp Exporter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(exp))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /dataset", s.handleDataset(exp))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type datasetResponse struct {
	ExportID string          `json:"export_id"`
	Dataset  *domain.Dataset `json:"dataset"`
}

func (s *Server) handleDataset(exp Exporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		id, ds, ok := exp.LastDataset()
		if !ok {
			_ = writeJSON(w, http.StatusNotFound, map[string]string{"error": "no dataset exported yet"})
			return
		}
		if err := writeJSON(w, http.StatusOK, datasetResponse{ExportID: id, Dataset: ds}); err != nil {
			s.logger.Warn("write dataset response failed", "error", err, "export_id", id)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
