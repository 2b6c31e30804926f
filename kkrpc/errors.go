package kkrpc

import (
	"fmt"

	"github.com/kunkunsh/kkrpc-go/internal/wire"
)

// MethodNotFoundError reports that a dotted path did not resolve on the
// peer's expose tree (spec.md §7).
type MethodNotFoundError struct {
	Method string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("kkrpc: method not found: %q", e.Method)
}
func (e *MethodNotFoundError) RPCName() string { return "MethodNotFound" }

// RPCValidationError reports that input or output schema validation
// rejected a call (spec.md §4.4.2, §7).
type RPCValidationError struct {
	Phase  string // "input" | "output"
	Method string
	Issues []string
}

func (e *RPCValidationError) Error() string {
	return fmt.Sprintf("kkrpc: %s validation failed for %q: %v", e.Phase, e.Method, e.Issues)
}
func (e *RPCValidationError) RPCName() string { return "RPCValidationError" }
func (e *RPCValidationError) Properties() map[string]any {
	return map[string]any{"phase": e.Phase, "method": e.Method, "issues": e.Issues}
}

// RPCTimeoutError reports that a pending entry aged out locally before a
// response arrived (spec.md §4.2.3, §7).
type RPCTimeoutError struct {
	Method    string
	TimeoutMs int64
}

func (e *RPCTimeoutError) Error() string {
	return fmt.Sprintf("kkrpc: call to %q timed out after %dms", e.Method, e.TimeoutMs)
}
func (e *RPCTimeoutError) RPCName() string { return "RPCTimeoutError" }
func (e *RPCTimeoutError) Properties() map[string]any {
	return map[string]any{"method": e.Method, "timeoutMs": e.TimeoutMs}
}

// RPCDestroyedError reports that the channel was torn down while this
// entry was still inflight (spec.md §4.2.3, invariant 7).
type RPCDestroyedError struct{}

func (e *RPCDestroyedError) Error() string   { return "kkrpc: channel destroyed" }
func (e *RPCDestroyedError) RPCName() string { return "RPCDestroyed" }

// ProtocolError reports a malformed frame: unknown message type, an
// out-of-range transfer slot, or a slot consumed twice in one frame.
type ProtocolError = wire.ProtocolError

// RemoteError is the live error value reconstructed on the caller's side
// from a peer's error record, preserving name/message/stack/cause/extra
// properties (spec.md §7).
type RemoteError = wire.RemoteError

func newProtocolError(reason string) error {
	return &wire.ProtocolError{Reason: reason}
}
