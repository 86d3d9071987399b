// Package boundary normalizes any failure raised while serving a request into
// a canonical error record and renders it as a wire response.
//
// The flow is fixed: the registry picks a handler by the failure's kind, the
// handler builds a partial record, resolveFields fills code and message from
// configuration, complete supplies hardcoded fallbacks, and buildResponse
// derives status code, headers and body.
package boundary

import (
	"context"
	"errorgate/internal/apperrors"
	"log/slog"
	"maps"
	"slices"
)

// Handler translates one failure kind into a (partial) canonical record.
type Handler func(ctx context.Context, failure error, req *RequestInfo) *apperrors.Error

// Registry maps failure kinds to handlers. It is built once and never
// written afterwards, so lookups need no locking.
type Registry struct {
	handlers map[Kind]Handler
}

func builtinHandlers() map[Kind]Handler {
	return map[Kind]Handler{
		KindCanonical:        passThrough,
		KindInput:            badRequest,
		KindMethodNotAllowed: methodNotAllowed,
		KindRouteNotFound:    routeNotFound,
		KindAny:              catchAll,
	}
}

// NewRegistry builds a registry from the built-in handlers with overrides
// applied on top. A KindAny entry is always present.
func NewRegistry(overrides map[Kind]Handler) *Registry {
	handlers := builtinHandlers()
	for k, h := range overrides {
		if h != nil {
			handlers[k] = h
		}
	}
	return &Registry{handlers: handlers}
}

// Kinds returns the registered kinds in ascending order.
func (r *Registry) Kinds() []Kind {
	return slices.Sorted(maps.Keys(r.handlers))
}

// Resolve returns the handler registered for failure's exact kind, falling
// back to the catch-all. It never returns nil.
func (r *Registry) Resolve(failure error) Handler {
	if h, ok := r.handlers[KindOf(failure)]; ok {
		return h
	}
	return r.handlers[KindAny]
}

// dispatch runs the resolved handler. A handler that panics or returns nil
// is replaced by the catch-all so the pipeline always has a record.
func (r *Registry) dispatch(ctx context.Context, logger *slog.Logger, failure error, req *RequestInfo) (rec *apperrors.Error) {
	fallback := r.handlers[KindAny]
	defer func() {
		if p := recover(); p != nil {
			logger.ErrorContext(ctx, "Error handler panicked", "kind", KindOf(failure).String(), "panic", p)
			rec = safeFallback(ctx, fallback, failure, req)
		}
	}()

	rec = r.Resolve(failure)(ctx, failure, req)
	if rec == nil {
		rec = safeFallback(ctx, fallback, failure, req)
	}
	return rec
}

// safeFallback runs the catch-all, degrading to a bare UNEXPECTED record if
// a user-supplied catch-all misbehaves too.
func safeFallback(ctx context.Context, h Handler, failure error, req *RequestInfo) (rec *apperrors.Error) {
	defer func() {
		if recover() != nil {
			rec = nil
		}
		if rec == nil {
			rec = apperrors.New(apperrors.StatusUnexpected)
		}
	}()
	return h(ctx, failure, req)
}
