package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/openglide/skysearch/pkg/cache"
	"github.com/openglide/skysearch/pkg/httputil"
	"github.com/openglide/skysearch/pkg/middleware"
	"github.com/openglide/skysearch/pkg/observability"
	"github.com/openglide/skysearch/pkg/search"
)

// Server represents our API server
type Server struct {
	router    *mux.Router
	handler   http.Handler
	service   *search.Service
	logger    *observability.Logger
	metrics   *observability.Metrics
	cache     *cache.ResultCache
	rateLimit *middleware.RateLimitMiddleware
	tracing   string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the base logger for request-scoped logging.
func WithLogger(logger *observability.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics instruments every matched route.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithCache puts a result cache in front of the search service.
func WithCache(c *cache.ResultCache) Option {
	return func(s *Server) {
		s.cache = c
	}
}

// WithRateLimit checks every request against mw before it is routed.
func WithRateLimit(mw *middleware.RateLimitMiddleware) Option {
	return func(s *Server) {
		s.rateLimit = mw
	}
}

// WithTracing wraps the handler with otelhttp under the given operation name.
func WithTracing(operation string) Option {
	return func(s *Server) {
		s.tracing = operation
	}
}

// NewServer creates a new API server
func NewServer(service *search.Service, opts ...Option) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		service: service,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s.setupRoutes()

	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware(s.logger),
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
	}
	if s.rateLimit != nil {
		chain = append(chain, s.rateLimit.Handler)
	}
	s.handler = httputil.Chain(chain...)(s.router)

	if s.tracing != "" {
		s.handler = otelhttp.NewHandler(s.handler, s.tracing)
	}

	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "route not found")
	})

	NewSearchHandlers(s.service, s.cache).RegisterRoutes(s.router)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router returns the underlying router so callers can register extra routes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// NewHealthHandler serves the health probes and, when registry is set, the
// Prometheus endpoint. It runs on its own port next to the API.
func NewHealthHandler(checker *observability.HealthChecker, registry *prometheus.Registry) http.Handler {
	router := mux.NewRouter()
	observability.RegisterHealthRoutes(router, checker)
	if registry != nil {
		router.Handle("/metrics", observability.MetricsHandler(registry)).Methods(http.MethodGet)
	}
	return router
}
