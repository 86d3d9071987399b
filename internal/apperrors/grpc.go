package apperrors

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GRPCStatus projects the record onto a gRPC status so that
// status.FromError and status.Code understand it. The public fields travel
// in a google.rpc.ErrorInfo detail.
func (e *Error) GRPCStatus() *status.Status {
	if e == nil {
		return status.New(codes.Internal, "unexpected error")
	}

	st := status.New(e.grpcCode(), e.Message)

	info := &errdetails.ErrorInfo{
		Reason: e.Code,
		Domain: e.Component,
		Metadata: map[string]string{
			"status":    string(e.Status),
			"errorType": string(e.ErrorType),
		},
	}
	if detailed, err := st.WithDetails(info); err == nil {
		return detailed
	}
	return st
}

// grpcCode prefers the status table; an explicit HTTP override with no
// status is mapped back through the table.
func (e *Error) grpcCode() codes.Code {
	if e.Status.Known() {
		return e.Status.GRPCCode()
	}
	if s, ok := statusForHTTP(e.HTTPStatus()); ok {
		return s.GRPCCode()
	}
	return codes.Unknown
}
