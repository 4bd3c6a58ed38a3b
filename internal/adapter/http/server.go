package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/city-sensor-pipeline/internal/domain"
	"github.com/couchcryptid/city-sensor-pipeline/internal/pipeline"
)

// Pipeline is the read side of the ingestion pipeline plus the
// city-selection event.
type Pipeline interface {
	sharedobs.ReadinessChecker
	State() pipeline.State
	Cities() map[string]domain.City
	Location() *time.Location
	Select(cityKey string) error
}

// Server exposes health, readiness, metrics, and the dashboard API.
type Server struct {
	httpServer *http.Server
	pipeline   Pipeline
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// /api/v1 routes. notifications, when non-nil, is mounted at /ws.
func NewServer(addr string, p Pipeline, notifications http.Handler, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		pipeline: p,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(p))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/cities", s.handleCities)
	mux.HandleFunc("POST /api/v1/cities/{key}/select", s.handleSelect)
	mux.HandleFunc("GET /api/v1/state", s.handleState)
	mux.HandleFunc("GET /api/v1/records", s.withSnapshot(s.handleRecords))
	mux.HandleFunc("GET /api/v1/statistics", s.withSnapshot(s.handleStatistics))
	mux.HandleFunc("GET /api/v1/sensors", s.withSnapshot(s.handleSensors))
	mux.HandleFunc("GET /api/v1/classify", s.withSnapshot(s.handleClassify))
	mux.HandleFunc("GET /api/v1/heatmap", s.withSnapshot(s.handleHeatmap))
	mux.HandleFunc("GET /api/v1/area", s.withSnapshot(s.handleArea))

	if notifications != nil {
		mux.Handle("GET /ws", notifications)
	}

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

type snapshotHandler func(w http.ResponseWriter, r *http.Request, snap *pipeline.Snapshot)

// withSnapshot answers 503 until the first snapshot is published.
func (s *Server) withSnapshot(h snapshotHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.pipeline.State().Snapshot
		if snap == nil {
			writeError(w, http.StatusServiceUnavailable, "no snapshot has been published yet")
			return
		}
		h(w, r, snap)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
