package kkrpc

import "github.com/kunkunsh/kkrpc-go/internal/wire"

// Transfer marks a value for zero-copy handoff to the peer, carrying the
// handle(s) (e.g. a []byte buffer) that back it. It replaces the source
// runtime's implicit weak-map transfer cache with an explicit, one-shot
// wrapper consumed by the channel during encode (spec.md §9, SPEC_FULL.md
// §E.3).
type Transfer = wire.Transfer

// WithTransfer wraps value for transfer together with the handle(s) that
// back it.
func WithTransfer(value any, handles ...any) Transfer {
	return wire.WithTransfer(value, handles...)
}

// TransferHandler lets a host register a custom type as transferable.
type TransferHandler = wire.TransferHandler

// TransferRegistry holds the channel's registered custom TransferHandlers.
type TransferRegistry = wire.TransferRegistry

// NewTransferRegistry creates an empty registry.
func NewTransferRegistry() *TransferRegistry {
	return wire.NewTransferRegistry()
}

// neuterRawHandles returns wire-bound copies of handles and zeroes the
// caller's own []byte slices in place, so the sender can no longer observe
// a transferred buffer's content once send returns (spec.md §9, S7:
// "immediately after emission, the sender's buffers are neutered"). This
// only fires on a transport that advertised Transfer capability — send
// refuses handles otherwise.
//
// The copy is required, not incidental: Go's in-memory transport hands the
// receiver the very same slice header the sender built the Transfer from
// (true zero-copy, no transport-level deserialization in between). Zeroing
// that shared backing array in place, the way a network transport safely
// could once its own serialization has already produced an independent
// copy, would race the receiving goroutine and could hand it zeros instead
// of the transferred content. Snapshotting the bytes for the wire and
// neutering only the sender's original reference keeps both properties
// true: the sender can't read its old buffer again, and the peer still
// sees what was actually sent. Handle values this module doesn't recognize
// as byte-backed (custom TransferHandler handles) pass through untouched.
func neuterRawHandles(handles []any) []any {
	out := make([]any, len(handles))
	for i, h := range handles {
		b, ok := h.([]byte)
		if !ok {
			out[i] = h
			continue
		}
		cp := make([]byte, len(b))
		copy(cp, b)
		clear(b)
		out[i] = cp
	}
	return out
}
