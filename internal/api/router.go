package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/alvesdmateus/auto-deployer/internal/observability"
	"github.com/alvesdmateus/auto-deployer/pkg/database"
)

// Version is reported by the health endpoint
var Version = "dev"

// Dependencies wires the API server to the rest of the service
type Dependencies struct {
	DB             *gorm.DB
	Targets        TargetLister
	TaskLogs       TaskLogReader
	Trigger        DeployTrigger
	Queues         QueueInspector
	Metrics        *observability.Metrics
	Gatherer       prometheus.Gatherer
	Tracer         *observability.Tracer
	AllowedOrigins []string
	DeployLimit    RateLimitConfig
}

// Server represents the HTTP API server
type Server struct {
	router        *chi.Mux
	deps          Dependencies
	targetHandler *TargetHandler
	queueHandler  *QueueHandler
}

// NewServer creates a new API server
func NewServer(deps Dependencies) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.Tracer == nil {
		deps.Tracer = observability.GetGlobalTracer()
	}

	s := &Server{
		router:        chi.NewRouter(),
		deps:          deps,
		targetHandler: NewTargetHandler(deps.Targets, deps.TaskLogs, deps.Trigger),
		queueHandler:  NewQueueHandler(deps.Queues),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(RequestLogger)
	s.router.Use(CORSMiddleware(s.deps.AllowedOrigins))
	s.router.Use(TracingMiddleware(s.deps.Tracer))
	if s.deps.Metrics != nil {
		s.router.Use(MetricsMiddleware(s.deps.Metrics))
	}

	s.router.Get("/health", s.healthCheck)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/queues", s.queueHandler.ListQueues)

		r.Route("/targets", func(r chi.Router) {
			r.Get("/", s.targetHandler.ListTargets)

			r.Route("/{targetID}", func(r chi.Router) {
				r.Get("/tasks", s.targetHandler.ListTaskLogs)
				r.With(RateLimitMiddleware(s.deps.DeployLimit)).Post("/deploy", s.targetHandler.Deploy)
			})
		})
	})
}

// healthCheck handles GET /health
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	response := HealthResponse{
		Status:   "ok",
		Database: "ok",
		Version:  Version,
	}

	if s.deps.DB == nil {
		response.Database = "disabled"
	} else if err := database.Ping(r.Context(), s.deps.DB); err != nil {
		response.Status = "degraded"
		response.Database = "error"
		status = http.StatusServiceUnavailable
	}

	for _, q := range s.deps.Queues.Stats() {
		response.Queues++
		response.Pending += int64(q.Pending)
	}

	RespondWithJSON(w, status, response)
}

// Handler returns the http.Handler for the server
func (s *Server) Handler() http.Handler {
	return s.router
}
