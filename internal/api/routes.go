package api

import (
	"errorgate/internal/boundary"
	"errorgate/internal/health"
	"errorgate/internal/observability"
	"errorgate/internal/ratelimit"
	"net/http"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	Metrics       *observability.Metrics
	HealthChecker *health.Checker
	Errors        *boundary.Pipeline
	Limiter       *ratelimit.Limiter // nil disables rate limiting
	APIKey        string
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(cfg RouterConfig) http.Handler {
	errs := cfg.Errors
	if errs == nil {
		errs = boundary.New(boundary.Config{})
	}
	handler := NewHandler(cfg.HealthChecker, errs)

	mux := http.NewServeMux()

	// Health check endpoints (liveness/readiness probes) - no auth required
	mux.HandleFunc("GET /livez", handler.Livez)
	mux.HandleFunc("GET /readyz", handler.Readyz)

	// Sample endpoints exercising every failure category
	mux.HandleFunc("GET /test/hello", handler.Hello)
	mux.HandleFunc("GET /test/hello-params", handler.HelloParams)
	mux.HandleFunc("GET /test/errors/{status}", handler.RaiseError)
	mux.HandleFunc("GET /test/panic", handler.Panic)
	mux.Handle("GET /test/secure", AuthMiddleware(cfg.APIKey, errs)(http.HandlerFunc(handler.Secure)))

	var rateMetrics rateLimitRecorder
	if cfg.Metrics != nil {
		rateMetrics = cfg.Metrics
	}

	// Apply middleware chain (order matters: outermost first)
	h := RouteFailureMiddleware(mux, errs)
	h = ContentTypeMiddleware(errs)(h)
	h = CORSMiddleware()(h)
	h = RateLimitMiddleware(cfg.Limiter, errs, rateMetrics)(h)
	if cfg.Metrics != nil {
		h = MetricsMiddleware(cfg.Metrics)(h)
	}
	h = LoggingMiddleware()(h)
	h = RecoveryMiddleware(errs)(h)

	return h
}
