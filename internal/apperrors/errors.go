// Package apperrors provides the canonical error record rendered at the
// service boundary, with HTTP and gRPC status mapping.
package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"time"
)

// Error is the canonical error record. Every failure reaching the boundary is
// normalized into one of these before it is written to the wire.
//
// Values are treated as immutable: the WithX helpers return a shallow copy and
// never touch the receiver, so a record can be shared between goroutines.
type Error struct {
	Status         Status            // Coarse classification; drives HTTP code and config keys
	Code           string            // Machine-readable identifier (e.g. "ER0004")
	Message        string            // Human-readable description
	Component      string            // Owning service or subsystem
	ErrorType      ErrorType         // TECHNICAL or FUNCTIONAL
	HTTPStatusCode int               // Explicit wire status; 0 means derive from Status
	Headers        map[string]string // Extra response headers, never serialized
	Details        map[string]any    // Public structured data, serialized as "details"
	Cause          error             // Original failure, never serialized
	Resolved       bool              // Code/message are authoritative
}

// Error returns the human-readable error message.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Code != "" && e.Message != "":
		return e.Code + ": " + e.Message
	case e.Message != "":
		return e.Message
	case e.Code != "":
		return e.Code
	case e.Status != StatusNone:
		return string(e.Status)
	default:
		return "unexpected error"
	}
}

// Unwrap returns the original failure.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus resolves the wire status: an explicit HTTPStatusCode wins, then
// the code implied by Status, then 500.
func (e *Error) HTTPStatus() int {
	if e == nil {
		return 500
	}
	if e.HTTPStatusCode > 0 {
		return e.HTTPStatusCode
	}
	if code := e.Status.HTTPStatus(); code > 0 {
		return code
	}
	return 500
}

// body is the public wire shape of Error.
type body struct {
	Code      string         `json:"code,omitempty"`
	Message   string         `json:"message,omitempty"`
	Component string         `json:"component,omitempty"`
	ErrorType ErrorType      `json:"errorType"`
	Details   map[string]any `json:"details,omitempty"`
}

// MarshalJSON emits only the public fields. Status, headers, cause and the
// resolved flag stay internal.
func (e Error) MarshalJSON() ([]byte, error) {
	errorType := e.ErrorType
	if errorType == TypeNone {
		errorType = TypeTechnical
	}
	return json.Marshal(body{
		Code:      e.Code,
		Message:   e.Message,
		Component: e.Component,
		ErrorType: errorType,
		Details:   e.Details,
	})
}

// WithStatus returns a copy of e with Status set.
func (e *Error) WithStatus(s Status) *Error {
	cp := *e
	cp.Status = s
	return &cp
}

// WithCode returns a copy of e with Code set.
func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

// WithMessage returns a copy of e with Message set.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// WithComponent returns a copy of e with Component set.
func (e *Error) WithComponent(component string) *Error {
	cp := *e
	cp.Component = component
	return &cp
}

// WithErrorType returns a copy of e with ErrorType set.
func (e *Error) WithErrorType(t ErrorType) *Error {
	cp := *e
	cp.ErrorType = t
	return &cp
}

// WithHTTPStatusCode returns a copy of e with an explicit wire status.
func (e *Error) WithHTTPStatusCode(code int) *Error {
	cp := *e
	cp.HTTPStatusCode = code
	return &cp
}

// WithHeader returns a copy of e with one extra response header.
func (e *Error) WithHeader(k, v string) *Error {
	return e.WithHeaders(map[string]string{k: v})
}

// WithHeaders returns a copy of e with kv merged into Headers; kv wins on
// conflicts. The header map is always copied.
func (e *Error) WithHeaders(kv map[string]string) *Error {
	if len(kv) == 0 {
		return e
	}
	cp := *e
	m := make(map[string]string, len(e.Headers)+len(kv))
	maps.Copy(m, e.Headers)
	maps.Copy(m, kv)
	cp.Headers = m
	return &cp
}

// WithDetail returns a copy of e with one extra public detail.
func (e *Error) WithDetail(k string, v any) *Error {
	cp := *e
	m := make(map[string]any, len(e.Details)+1)
	maps.Copy(m, e.Details)
	m[k] = v
	cp.Details = m
	return &cp
}

// WithCause returns a copy of e wrapping err. A nil err returns e unchanged.
func (e *Error) WithCause(err error) *Error {
	if err == nil {
		return e
	}
	cp := *e
	cp.Cause = err
	return &cp
}

// MarkResolved returns a copy of e flagged as resolved.
func (e *Error) MarkResolved() *Error {
	cp := *e
	cp.Resolved = true
	return &cp
}

// New creates an unresolved record with only the status set. Code and
// message are filled from configuration at the boundary.
func New(status Status) *Error {
	return &Error{Status: status}
}

// Newf creates a resolved record with a formatted message.
func Newf(status Status, format string, args ...any) *Error {
	return &Error{
		Status:   status,
		Message:  fmt.Sprintf(format, args...),
		Resolved: true,
	}
}

// Validation creates a functional bad-request error for a specific field.
func Validation(field, message string) *Error {
	return &Error{
		Status:    StatusBadRequest,
		Message:   message,
		ErrorType: TypeFunctional,
		Details:   map[string]any{"field": field},
		Resolved:  true,
	}
}

// NotFound creates a not found error for a resource.
func NotFound(resource, id string) *Error {
	return &Error{
		Status:    StatusNotFound,
		Message:   fmt.Sprintf("%s %s not found", resource, id),
		ErrorType: TypeFunctional,
		Details:   map[string]any{"resource": resource},
		Resolved:  true,
	}
}

// Conflict creates a conflict error for a resource.
func Conflict(resource, id, reason string) *Error {
	return &Error{
		Status:    StatusConflict,
		Message:   reason,
		ErrorType: TypeFunctional,
		Details:   map[string]any{"resource": resource, "id": id},
		Resolved:  true,
	}
}

// Internal creates a technical error wrapping an underlying cause. The
// message is left to configuration so the cause never leaks to clients.
func Internal(op string, cause error) *Error {
	wrapped := errors.New(op)
	if cause != nil {
		wrapped = fmt.Errorf("%s: %w", op, cause)
	}
	return &Error{
		Status:    StatusUnexpected,
		ErrorType: TypeTechnical,
		Cause:     wrapped,
	}
}

// NotAuthorized creates an authentication failure with a bearer challenge.
func NotAuthorized(message string) *Error {
	return &Error{
		Status:    StatusNotAuthorized,
		Message:   message,
		ErrorType: TypeFunctional,
		Headers:   map[string]string{"WWW-Authenticate": "Bearer"},
		Resolved:  true,
	}
}

// TooManyRequests creates a rate-limit rejection carrying a Retry-After
// header rounded up to whole seconds.
func TooManyRequests(retryAfter time.Duration) *Error {
	secs := int((retryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return &Error{
		Status:    StatusTooManyRequests,
		ErrorType: TypeTechnical,
		Headers:   map[string]string{"Retry-After": strconv.Itoa(secs)},
	}
}
