package apperrors

import (
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
)

// Status is the coarse classification of a failure. It drives the default
// HTTP status code and the configuration keys used to look up code and message.
type Status string

// Status values. StatusNone means the status has not been resolved yet.
const (
	StatusNone                Status = ""
	StatusBadRequest          Status = "BAD_REQUEST"
	StatusNotAuthorized       Status = "NOT_AUTHORIZED"
	StatusForbidden           Status = "FORBIDDEN"
	StatusNotFound            Status = "NOT_FOUND"
	StatusMethodNotAllowed    Status = "METHOD_NOT_ALLOWED"
	StatusTimeout             Status = "TIMEOUT"
	StatusConflict            Status = "CONFLICT"
	StatusPreconditionFailed  Status = "PRECONDITION_FAILED"
	StatusTooManyRequests     Status = "TOO_MANY_REQUESTS"
	StatusUnexpected          Status = "UNEXPECTED"
	StatusExternalError       Status = "EXTERNAL_ERROR"
	StatusInvalidExternalData Status = "INVALID_EXTERNAL_DATA"
)

type statusInfo struct {
	http     int
	property string
	grpc     codes.Code
}

var statusTable = map[Status]statusInfo{
	StatusBadRequest:          {http.StatusBadRequest, ".bad-request", codes.InvalidArgument},
	StatusNotAuthorized:       {http.StatusUnauthorized, ".not-authorized", codes.Unauthenticated},
	StatusForbidden:           {http.StatusForbidden, ".forbidden", codes.PermissionDenied},
	StatusNotFound:            {http.StatusNotFound, ".not-found", codes.NotFound},
	StatusMethodNotAllowed:    {http.StatusMethodNotAllowed, ".method-not-allowed", codes.Unimplemented},
	StatusTimeout:             {http.StatusRequestTimeout, ".timeout", codes.DeadlineExceeded},
	StatusConflict:            {http.StatusConflict, ".conflict", codes.AlreadyExists},
	StatusPreconditionFailed:  {http.StatusPreconditionFailed, ".precondition-failed", codes.FailedPrecondition},
	StatusTooManyRequests:     {http.StatusTooManyRequests, ".too-many-requests", codes.ResourceExhausted},
	StatusUnexpected:          {http.StatusInternalServerError, ".unexpected", codes.Internal},
	StatusExternalError:       {http.StatusBadGateway, ".external-error", codes.Unavailable},
	StatusInvalidExternalData: {http.StatusBadGateway, ".invalid-external-data", codes.DataLoss},
}

// Statuses returns every known status, in table order of HTTP code.
func Statuses() []Status {
	return []Status{
		StatusBadRequest,
		StatusNotAuthorized,
		StatusForbidden,
		StatusNotFound,
		StatusMethodNotAllowed,
		StatusTimeout,
		StatusConflict,
		StatusPreconditionFailed,
		StatusTooManyRequests,
		StatusUnexpected,
		StatusExternalError,
		StatusInvalidExternalData,
	}
}

// HTTPStatus returns the HTTP status code implied by s, or 0 when s is
// absent or unknown.
func (s Status) HTTPStatus() int {
	return statusTable[s].http
}

// PropertyName returns the configuration key fragment for s, including the
// leading dot (e.g. ".not-found"). Unknown statuses yield "".
func (s Status) PropertyName() string {
	return statusTable[s].property
}

// GRPCCode returns the gRPC code for s. Absent or unknown statuses map to
// codes.Unknown.
func (s Status) GRPCCode() codes.Code {
	if info, ok := statusTable[s]; ok {
		return info.grpc
	}
	return codes.Unknown
}

// Known reports whether s is one of the declared statuses.
func (s Status) Known() bool {
	_, ok := statusTable[s]
	return ok
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus accepts a status name ("NOT_FOUND") or its property fragment,
// with or without the leading dot ("not-found", ".not-found").
func ParseStatus(v string) (Status, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return StatusNone, false
	}
	if s := Status(strings.ToUpper(v)); s.Known() {
		return s, true
	}
	fragment := "." + strings.TrimPrefix(strings.ToLower(v), ".")
	for s, info := range statusTable {
		if info.property == fragment {
			return s, true
		}
	}
	return StatusNone, false
}

// statusForHTTP returns the first status whose HTTP code equals code.
func statusForHTTP(code int) (Status, bool) {
	for _, s := range Statuses() {
		if statusTable[s].http == code {
			return s, true
		}
	}
	return StatusNone, false
}

// ErrorType is the axis orthogonal to Status separating internal faults from
// business-rule violations.
type ErrorType string

// ErrorType values. TypeNone means not yet resolved.
const (
	TypeNone       ErrorType = ""
	TypeTechnical  ErrorType = "TECHNICAL"
	TypeFunctional ErrorType = "FUNCTIONAL"
)
