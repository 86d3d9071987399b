package boundary

import (
	"context"
	"encoding/json"
	"errorgate/internal/apperrors"
	"log/slog"
	"net/http"
)

// Recorder counts rendered errors.
type Recorder interface {
	RecordError(ctx context.Context, status, code, errorType string, httpStatus int)
}

// Reporter receives records that describe server-side failures.
type Reporter interface {
	Report(ctx context.Context, rec *apperrors.Error, req *RequestInfo) bool
}

// Config wires the pipeline to its collaborators. Every field is optional.
type Config struct {
	Lookup   Lookup
	Metadata Metadata
	Recorder Recorder
	Reporter Reporter
	Logger   *slog.Logger
}

// Option customizes a Pipeline.
type Option func(*options)

type options struct {
	overrides map[Kind]Handler
}

// WithHandler registers h for kind, replacing the built-in handler.
func WithHandler(kind Kind, h Handler) Option {
	return func(o *options) {
		if o.overrides == nil {
			o.overrides = make(map[Kind]Handler)
		}
		o.overrides[kind] = h
	}
}

// Pipeline turns failures into responses. It is safe for concurrent use.
type Pipeline struct {
	registry *Registry
	lookup   Lookup
	metadata Metadata
	recorder Recorder
	reporter Reporter
	logger   *slog.Logger
}

// New creates a pipeline.
func New(cfg Config, opts ...Option) *Pipeline {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		registry: NewRegistry(o.overrides),
		lookup:   cfg.Lookup,
		metadata: cfg.Metadata,
		recorder: cfg.Recorder,
		reporter: cfg.Reporter,
		logger:   logger.With("component", "boundary"),
	}
}

// Registry returns the handler registry in use.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Handle runs failure through dispatch, field resolution, completion and
// response building. It always returns a response.
func (p *Pipeline) Handle(ctx context.Context, failure error, req *RequestInfo) Response {
	rec := p.registry.dispatch(ctx, p.logger, failure, req)
	rec = resolveFields(rec, p.lookup)
	rec = complete(rec, p.metadata)
	return buildResponse(rec)
}

// Write renders failure as the HTTP response for r.
func (p *Pipeline) Write(w http.ResponseWriter, r *http.Request, failure error) {
	ctx := r.Context()
	req := RequestInfoFrom(r)
	resp := p.Handle(ctx, failure, req)
	p.observe(ctx, failure, req, resp)

	h := w.Header()
	for k, v := range resp.Headers {
		h.Set(k, v)
	}
	h.Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if err := json.NewEncoder(w).Encode(resp.Body); err != nil {
		p.logger.ErrorContext(ctx, "Failed to encode error response", "error", err)
	}
}

// observe logs, counts and reports one rendered failure.
func (p *Pipeline) observe(ctx context.Context, failure error, req *RequestInfo, resp Response) {
	rec := resp.Body
	attrs := []any{
		"status", resp.StatusCode,
		"code", rec.Code,
		"error_status", string(rec.Status),
	}
	if req != nil {
		attrs = append(attrs, "method", req.Method, "path", req.Path)
	}
	if failure != nil {
		attrs = append(attrs, "error", failure.Error())
	}

	if resp.StatusCode >= 500 {
		p.logger.ErrorContext(ctx, "Internal error", attrs...)
	} else {
		p.logger.WarnContext(ctx, "Client error", attrs...)
	}

	if p.recorder != nil {
		p.recorder.RecordError(ctx, string(rec.Status), rec.Code, string(rec.ErrorType), resp.StatusCode)
	}
	if p.reporter != nil && resp.StatusCode >= 500 {
		if !p.reporter.Report(ctx, rec, req) {
			p.logger.WarnContext(ctx, "Error report dropped", "code", rec.Code)
		}
	}
}
