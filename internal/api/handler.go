// Package api provides the HTTP API handlers and routing for errorgate.
package api

import (
	"encoding/json"
	"errorgate/internal/apperrors"
	"errorgate/internal/boundary"
	"errorgate/internal/health"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// Query parameters of GET /test/hello-params.
const (
	paramString  = "param.string"
	paramInteger = "param.integer"
)

// Handler contains HTTP handlers for the sample API.
type Handler struct {
	health *health.Checker
	errors *boundary.Pipeline
}

// NewHandler creates a new API handler
func NewHandler(healthChecker *health.Checker, errs *boundary.Pipeline) *Handler {
	return &Handler{
		health: healthChecker,
		errors: errs,
	}
}

// Hello handles GET /test/hello
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"greeting": "Hello world!"})
}

// HelloParams handles GET /test/hello-params
// Query params: param.string (required), param.integer (required, integer)
func (h *Handler) HelloParams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	str := q.Get(paramString)
	if strings.TrimSpace(str) == "" {
		h.handleError(w, r, &boundary.InputError{Reason: paramString + " must not be blank"})
		return
	}

	raw := q.Get(paramInteger)
	if raw == "" {
		h.handleError(w, r, &boundary.InputError{Reason: paramInteger + " must not be blank"})
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		h.handleError(w, r, &boundary.InputError{Reason: paramInteger + " must be an integer", Cause: err})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"greeting":   "Hello world!",
		paramString:  str,
		paramInteger: n,
	})
}

// RaiseError handles GET /test/errors/{status} by failing with an
// unresolved record of that status.
func (h *Handler) RaiseError(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("status")
	status, ok := apperrors.ParseStatus(raw)
	if !ok {
		h.handleError(w, r, &boundary.InputError{Reason: "unknown status " + strconv.Quote(raw)})
		return
	}
	h.handleError(w, r, apperrors.New(status))
}

// Panic handles GET /test/panic
func (h *Handler) Panic(w http.ResponseWriter, r *http.Request) {
	panic("test panic")
}

// Secure handles GET /test/secure, reachable only past AuthMiddleware.
func (h *Handler) Secure(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}

// Livez handles GET /livez - liveness probe.
// Returns 200 if the process is alive. Does not check dependencies.
func (h *Handler) Livez(w http.ResponseWriter, r *http.Request) {
	response := h.health.Liveness(r.Context())
	h.writeJSON(w, http.StatusOK, response)
}

// Readyz handles GET /readyz - readiness probe.
// Returns 503 only when a required dependency (the error catalog) fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	response := h.health.Readiness(r.Context())

	status := http.StatusOK
	if !response.IsReady() {
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// handleError renders err through the error boundary.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	h.errors.Write(w, r, err)
}
