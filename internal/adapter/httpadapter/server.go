package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/fire-hotspot-service/internal/animator"
	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
	"github.com/couchcryptid/fire-hotspot-service/internal/geoindex"
	"github.com/couchcryptid/fire-hotspot-service/internal/observability"
)

// RegionIndex attributes points and events to boundary regions.
type RegionIndex interface {
	Locate(p domain.Point) (geoindex.RegionRef, bool)
	Tag(events []domain.FireEvent) []domain.TaggedFireEvent
}

// AnimationController is the animator surface driven over HTTP.
type AnimationController interface {
	State() animator.State
	Start()
	Stop()
	Advance() int
	SetHour(h int) error
	ShowAll()
	Subscribe(fn animator.Observer) (unsubscribe func())
}

// Deps are the collaborators the API serves from.
type Deps struct {
	Dataset  *domain.Dataset
	Regions  RegionIndex
	Animator AnimationController
	Ready    sharedobs.ReadinessChecker
	Metrics  *observability.Metrics

	// DefaultBox applies to fire and aggregate queries without a bbox parameter.
	DefaultBox  *domain.BoundingBox
	CORSOrigins []string
}

// Server exposes the fire map API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	deps       Deps
	upgrader   websocket.Upgrader

	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates the HTTP server and its routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		deps:   deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(deps.CORSOrigins),
		},
		closing: make(chan struct{}),
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(s.requestLogger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/healthz", sharedobs.LivenessHandler())
	router.Get("/readyz", sharedobs.ReadinessHandler(deps.Ready))
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/fires", s.handleFires)

		r.Route("/regions", func(r chi.Router) {
			r.Get("/aggregate", s.handleAggregate)
			r.Get("/locate", s.handleLocate)
		})

		r.Route("/animation", func(r chi.Router) {
			r.Get("/", s.handleAnimationState)
			r.Post("/start", s.handleAnimationStart)
			r.Post("/stop", s.handleAnimationStop)
			r.Post("/step", s.handleAnimationStep)
			r.Post("/all", s.handleAnimationShowAll)
			r.Put("/hour", s.handleAnimationSetHour)
			r.Get("/stream", s.handleStream)
		})
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
// Open animation streams are told to close first since hijacked connections
// are not tracked by http.Server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// originChecker mirrors the CORS allow list for WebSocket upgrades.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}
