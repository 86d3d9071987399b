package boundary

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

// grpcMethod is the RequestInfo method used for gRPC calls.
const grpcMethod = "GRPC"

// UnaryServerInterceptor normalizes handler failures (and panics) into
// completed records. The returned error carries its gRPC status via
// GRPCStatus.
func (p *Pipeline) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		reqInfo := &RequestInfo{Method: grpcMethod, Path: info.FullMethod}

		defer func() {
			if r := recover(); r != nil {
				resp, err = nil, p.fail(ctx, fmt.Errorf("panic: %v", r), reqInfo)
			}
		}()

		resp, err = handler(ctx, req)
		if err != nil {
			return nil, p.fail(ctx, err, reqInfo)
		}
		return resp, nil
	}
}

func (p *Pipeline) fail(ctx context.Context, failure error, req *RequestInfo) error {
	resp := p.Handle(ctx, failure, req)
	p.observe(ctx, failure, req, resp)
	return resp.Body
}
