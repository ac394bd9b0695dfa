// Package opsserver exposes the operational endpoints of the streaming tagger:
// liveness, readiness, Prometheus metrics, and a status summary.
package opsserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/fire-hotspot-service/internal/pipeline"
)

// Tagger is the pipeline surface the ops endpoints report on.
type Tagger interface {
	sharedobs.ReadinessChecker
	Progress() pipeline.Progress
}

// Status is the static tagger configuration reported on /status.
type Status struct {
	SourceTopic      string `json:"source_topic"`
	SinkTopic        string `json:"sink_topic"`
	GroupID          string `json:"group_id"`
	BatchSize        int    `json:"batch_size"`
	RegionsIndexed   int    `json:"regions_indexed"`
	GeocodingEnabled bool   `json:"geocoding_enabled"`
}

type statusResponse struct {
	Status
	Progress pipeline.Progress `json:"progress"`
	Ready    bool              `json:"ready"`
	Error    string            `json:"error,omitempty"`
	Uptime   string            `json:"uptime"`
}

// Server serves the tagger's operational endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	tagger     Tagger
	status     Status
	started    time.Time
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and /status routes.
func NewServer(addr string, tagger Tagger, status Status, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:  logger,
		tagger:  tagger,
		status:  status,
		started: time.Now(),
	}

	router.Use(middleware.Recoverer)
	router.Get("/healthz", sharedobs.LivenessHandler())
	router.Get("/readyz", sharedobs.ReadinessHandler(tagger))
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/status", s.handleStatus)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("ops server starting", "addr", s.httpServer.Addr)
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

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := statusResponse{
		Status:   s.status,
		Progress: s.tagger.Progress(),
		Ready:    true,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
	}
	if err := s.tagger.CheckReadiness(ctx); err != nil {
		resp.Ready = false
		resp.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp) //nolint:errcheck // best-effort status response
}
