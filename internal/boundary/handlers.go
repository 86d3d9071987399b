package boundary

import (
	"context"
	"errorgate/internal/apperrors"
	"fmt"
	"net/http"
	"strings"
)

// passThrough returns an already-canonical record unchanged. A typed nil
// degrades to an empty record.
func passThrough(_ context.Context, failure error, _ *RequestInfo) *apperrors.Error {
	rec, ok := failure.(*apperrors.Error)
	if !ok || rec == nil {
		return &apperrors.Error{}
	}
	return rec
}

// badRequest maps malformed input to BAD_REQUEST with the reason as message.
func badRequest(_ context.Context, failure error, _ *RequestInfo) *apperrors.Error {
	rec := &apperrors.Error{
		Status:   apperrors.StatusBadRequest,
		Cause:    failure,
		Resolved: true,
	}
	if in, ok := failure.(*InputError); ok && in != nil {
		rec.Message = in.Reason
	}
	return rec
}

// methodNotAllowed describes the rejected method, the URI and the methods
// the route does accept.
func methodNotAllowed(_ context.Context, failure error, req *RequestInfo) *apperrors.Error {
	code := http.StatusMethodNotAllowed
	var supported []string
	method := ""
	if mna, ok := failure.(*MethodNotAllowedError); ok && mna != nil {
		if mna.StatusCode > 0 {
			code = mna.StatusCode
		}
		supported = mna.Supported
		method = mna.Method
	}
	if method == "" && req != nil {
		method = req.Method
	}

	allowed := "-"
	if len(supported) > 0 {
		allowed = strings.Join(supported, ", ")
	}

	return &apperrors.Error{
		Status:         apperrors.StatusMethodNotAllowed,
		HTTPStatusCode: code,
		Message: fmt.Sprintf("Method %s is not supported on the next URI: \"%s\" only: %s",
			orDash(method), requestURI(req), allowed),
		Cause:    failure,
		Resolved: true,
	}
}

// routeNotFound describes a request no route matched.
func routeNotFound(_ context.Context, failure error, req *RequestInfo) *apperrors.Error {
	method := ""
	if req != nil {
		method = req.Method
	}
	return &apperrors.Error{
		Status:   apperrors.StatusNotFound,
		Message:  fmt.Sprintf("Not found -> HTTP %s \"%s\"", orDash(method), requestURI(req)),
		Cause:    failure,
		Resolved: true,
	}
}

// catchAll only classifies; everything else comes from later stages.
func catchAll(_ context.Context, failure error, _ *RequestInfo) *apperrors.Error {
	return &apperrors.Error{
		Status: apperrors.StatusUnexpected,
		Cause:  failure,
	}
}

// requestURI renders path plus "?query" when a query is present. The result
// is quoted verbatim by the messages, without escaping.
func requestURI(req *RequestInfo) string {
	if req == nil {
		return "-"
	}
	path := orDash(req.Path)
	if req.RawQuery != "" {
		return path + "?" + req.RawQuery
	}
	return path
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
