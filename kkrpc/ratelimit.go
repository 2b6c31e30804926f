package kkrpc

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware rejects a call immediately, without consuming a
// handler invocation, once limiter's budget is exhausted. It is ordinary
// Middleware and composes like any other interceptor (SPEC_FULL.md §C).
func RateLimitMiddleware(limiter *rate.Limiter) Middleware {
	return func(next MethodHandler) MethodHandler {
		return func(ctx context.Context, req *Request) (any, error) {
			if !limiter.Allow() {
				return nil, fmt.Errorf("kkrpc: rate limit exceeded for %q", req.Method)
			}
			return next(ctx, req)
		}
	}
}
