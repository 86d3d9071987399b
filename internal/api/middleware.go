package api

import (
	"context"
	"crypto/subtle"
	"errorgate/internal/apperrors"
	"errorgate/internal/boundary"
	"errorgate/internal/observability"
	"errorgate/internal/ratelimit"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			slog.InfoContext(r.Context(), "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration", time.Since(start),
			)
		})
	}
}

// MetricsMiddleware records HTTP request metrics (latency, traffic, errors).
func MetricsMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, wrapped.statusCode, duration)
		})
	}
}

// RecoveryMiddleware turns panics into catch-all error responses.
func RecoveryMiddleware(errs *boundary.Pipeline) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					slog.ErrorContext(r.Context(), "Panic recovered", "error", v)
					errs.Write(w, r, fmt.Errorf("panic: %v", v))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ContentTypeMiddleware ensures JSON content type for requests with a body.
func ContentTypeMiddleware(errs *boundary.Pipeline) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
				contentType := r.Header.Get("Content-Type")
				if contentType != "" && !isJSON(contentType) {
					errs.Write(w, r, apperrors.Newf(apperrors.StatusBadRequest, "Content-Type must be application/json").
						WithHTTPStatusCode(http.StatusUnsupportedMediaType))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isJSON(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), "application/json")
}

// CORSMiddleware adds CORS headers
func CORSMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Expose-Headers", "Retry-After, WWW-Authenticate")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware validates Bearer token authentication.
// If apiKey is empty, authentication is disabled.
func AuthMiddleware(apiKey string, errs *boundary.Pipeline) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip auth if no API key is configured
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				errs.Write(w, r, apperrors.NotAuthorized("Authorization header required"))
				return
			}

			// Expect "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				errs.Write(w, r, apperrors.NotAuthorized("Invalid authorization header format"))
				return
			}

			token := parts[1]
			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				errs.Write(w, r, apperrors.NotAuthorized("Invalid API key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitRecorder is satisfied by *observability.Metrics.
type rateLimitRecorder interface {
	RecordRateLimited(ctx context.Context, path string)
}

// RateLimitMiddleware rejects clients that exhausted their token bucket.
// A nil limiter disables limiting.
func RateLimitMiddleware(limiter *ratelimit.Limiter, errs *boundary.Pipeline, metrics rateLimitRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiter.Allow(ratelimit.ClientKey(r), time.Now())
			if !ok {
				if metrics != nil {
					metrics.RecordRateLimited(r.Context(), r.URL.Path)
				}
				errs.Write(w, r, apperrors.TooManyRequests(wait))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RouteFailureMiddleware renders router misses through the error boundary:
// unknown paths become RouteNotFoundError and known paths requested with the
// wrong method become MethodNotAllowedError.
func RouteFailureMiddleware(mux *http.ServeMux, errs *boundary.Pipeline) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := mux.Handler(r); pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}

		// Let the mux decide between 404, 405 and a path-cleaning redirect
		// without writing anything yet.
		capture := &captureWriter{header: make(http.Header)}
		mux.ServeHTTP(capture, r)

		switch capture.status {
		case http.StatusMethodNotAllowed:
			errs.Write(w, r, &boundary.MethodNotAllowedError{
				StatusCode: capture.status,
				Method:     r.Method,
				Supported:  boundary.ParseAllow(capture.header.Get("Allow")),
			})
		case http.StatusNotFound:
			errs.Write(w, r, &boundary.RouteNotFoundError{StatusCode: capture.status})
		default:
			mux.ServeHTTP(w, r)
		}
	})
}

// captureWriter records the status and headers of a response and discards
// the body.
type captureWriter struct {
	header http.Header
	status int
}

func (c *captureWriter) Header() http.Header { return c.header }

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	return len(b), nil
}

func (c *captureWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
