package connect

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

const (
	// RequestIDHeader is the header name for the request id returned to callers.
	RequestIDHeader = "X-Request-Id"
)

// NewLoggingInterceptor creates an interceptor that attaches a request
// scoped logger to the context and logs the outcome of each call.
func NewLoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			// Client side calls pass through untouched
			if req.Spec().IsClient {
				return next(ctx, req)
			}

			id := uuid.New().String()
			logger := zlog.With().
				Str("request_id", id).
				Str("procedure", req.Spec().Procedure).
				Str("peer", req.Peer().Addr).
				Logger()
			ctx = logger.WithContext(ctx)

			start := time.Now()
			resp, err := next(ctx, req)

			event := logger.Info()
			if err != nil {
				event = logger.Warn().Str("code", connect.CodeOf(err).String())
				var cerr *connect.Error
				if errors.As(err, &cerr) {
					cerr.Meta().Set(RequestIDHeader, id)
				}
			} else {
				resp.Header().Set(RequestIDHeader, id)
			}
			event.Dur("elapsed", time.Since(start)).Msg("rpc finished")

			return resp, err
		}
	}
}
