package kkrpc

import "context"

// Request is the context threaded through the interceptor chain for a
// single inbound request invocation: the method path, its positional
// arguments (already rehydrated: callback placeholders are live
// RemoteCallbacks, transfer placeholders are live values), and a mutable
// state bag interceptors may use to pass data to one another and to the
// handler (spec.md §4.4.1).
type Request struct {
	Method string
	Args   []any
	State  map[string]any
}

// MethodHandler answers one inbound request. The innermost MethodHandler in
// a chain is always the user's registered handler.
type MethodHandler func(ctx context.Context, req *Request) (any, error)

// Middleware wraps a MethodHandler with additional behavior, in the onion
// order described in spec.md §4.4.1: interceptor i calls next() to invoke
// interceptor i+1, with the deepest next() invoking the handler itself.
type Middleware func(next MethodHandler) MethodHandler

// chain builds the composed MethodHandler for an ordered interceptor list
// wrapping the terminal handler. Given [A, B] and handler H, the observed
// order around H is A-before, B-before, H, B-after, A-after (spec.md P8).
func chain(mws []Middleware, h MethodHandler) MethodHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
