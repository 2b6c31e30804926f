// Package transport defines kkrpc's IO abstraction (spec.md §6.1, C5): the
// thin contract the channel core consumes over a byte-message transport,
// plus a handful of concrete reference implementations in the teacher's
// style (stdio, in-memory, WebSocket, a logging decorator). Concrete
// transports are exercised by this module's own tests; the core itself
// never depends on a specific one.
package transport

import "context"

// Frame is one logical message as delivered by or handed to the IO layer.
// Data carries the v1-string or v2-JSON-envelope bytes; Handles carries any
// transferable handles accompanying a v2 structured send (spec.md §6.1).
type Frame struct {
	Data    []byte
	Handles []any
}

// Capabilities describes what a transport can do beyond plain byte
// messages. The channel prefers v2 emission only when Transfer is true AND
// the outgoing frame actually has handles (spec.md §4.2.2).
type Capabilities struct {
	StructuredClone bool
	Transfer        bool
}

// IO is the contract the kkrpc channel core consumes. Framing is the
// transport's responsibility: each Read yields exactly one logical
// message (spec.md §6.1 "Framing").
type IO interface {
	// Read blocks for the next inbound frame. It returns an error (often
	// wrapping io.EOF or a context error) when no further frames will
	// arrive.
	Read(ctx context.Context) (Frame, error)

	// Write sends a frame. It returns once the frame is queued or flushed
	// (implementation's choice) but must not silently drop it.
	Write(ctx context.Context, f Frame) error

	// Capabilities reports this transport's capability flags.
	Capabilities() Capabilities

	// Close tears the transport down; best-effort.
	Close() error
}
