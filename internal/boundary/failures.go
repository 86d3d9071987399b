package boundary

import (
	"errorgate/internal/apperrors"
	"net/http"
	"strings"
)

// Kind tags the failure categories the registry knows about.
type Kind int

const (
	KindAny              Kind = iota // Catch-all for anything unregistered
	KindCanonical                    // *apperrors.Error
	KindInput                        // *InputError
	KindMethodNotAllowed             // *MethodNotAllowedError
	KindRouteNotFound                // *RouteNotFoundError
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindCanonical:
		return "canonical"
	case KindInput:
		return "input"
	case KindMethodNotAllowed:
		return "method-not-allowed"
	case KindRouteNotFound:
		return "route-not-found"
	default:
		return "unknown"
	}
}

// KindOf returns the tag of failure's concrete type. Matching is by type
// identity only: wrapped errors, nil and types embedding a known failure all
// resolve to KindAny.
func KindOf(failure error) Kind {
	switch failure.(type) {
	case *apperrors.Error:
		return KindCanonical
	case *InputError:
		return KindInput
	case *MethodNotAllowedError:
		return KindMethodNotAllowed
	case *RouteNotFoundError:
		return KindRouteNotFound
	default:
		return KindAny
	}
}

// RequestInfo is the request context a handler may use to describe a failure.
type RequestInfo struct {
	Method   string
	Path     string
	RawQuery string
}

// RequestInfoFrom extracts the request context from r.
func RequestInfoFrom(r *http.Request) *RequestInfo {
	if r == nil {
		return nil
	}
	info := &RequestInfo{Method: r.Method}
	if r.URL != nil {
		info.Path = r.URL.Path
		info.RawQuery = r.URL.RawQuery
	}
	return info
}

// InputError reports malformed request data (missing or unparsable
// parameters, undecodable bodies).
type InputError struct {
	Reason string
	Cause  error
}

func (e *InputError) Error() string {
	if e == nil {
		return "invalid input"
	}
	if e.Cause != nil {
		return e.Reason + ": " + e.Cause.Error()
	}
	return e.Reason
}

func (e *InputError) Unwrap() error { return e.Cause }

// MethodNotAllowedError reports a matched path requested with an unsupported
// method.
type MethodNotAllowedError struct {
	StatusCode int      // Transport status, 405 when zero
	Method     string   // Rejected method
	Supported  []string // Methods the route accepts
}

func (e *MethodNotAllowedError) Error() string {
	if e == nil {
		return "method not allowed"
	}
	return "method " + e.Method + " not allowed"
}

// ParseAllow splits an Allow header value into method names.
func ParseAllow(header string) []string {
	var methods []string
	for _, m := range strings.Split(header, ",") {
		if m = strings.TrimSpace(m); m != "" {
			methods = append(methods, m)
		}
	}
	return methods
}

// RouteNotFoundError reports a request that no route matched.
type RouteNotFoundError struct {
	StatusCode int // Transport status, 404 when zero
}

func (e *RouteNotFoundError) Error() string {
	return "no route matched"
}
