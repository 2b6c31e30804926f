// Package wire implements kkrpc's wire codec: the dual-envelope framing,
// the two serialization formats ("json" and "superjson"), and the
// transfer-slot placeholder scheme used to carry transferable handles
// alongside a message.
package wire

import "encoding/json"

// MessageType names the eleven-wide protocol taxonomy a Message can carry.
type MessageType string

const (
	TypeRequest      MessageType = "request"
	TypeResponse     MessageType = "response"
	TypeCallback     MessageType = "callback"
	TypeCallbackFree MessageType = "callback-free"
	TypeGet          MessageType = "get"
	TypeSet          MessageType = "set"
	TypeConstruct    MessageType = "construct"
	TypeStreamChunk  MessageType = "stream-chunk"
	TypeStreamEnd    MessageType = "stream-end"
	TypeStreamError  MessageType = "stream-error"
	TypeStreamCancel MessageType = "stream-cancel"
)

// Version names a serialization format a Message was encoded with.
type Version string

const (
	VersionJSON      Version = "json"
	VersionSuperJSON Version = "superjson"
)

// Message is the single protocol unit carried over the byte stream. Field
// meaning depends on Type; see the wire message shape table in spec.md §6.2.
type Message struct {
	ID            string          `json:"id,omitempty"`
	Method        string          `json:"method,omitempty"`
	Type          MessageType     `json:"type"`
	Args          json.RawMessage `json:"args,omitempty"`
	CallbackIDs   []string        `json:"callbackIds,omitempty"`
	TransferSlots []TransferSlot  `json:"transferSlots,omitempty"`
	Path          []string        `json:"path,omitempty"`
	Value         json.RawMessage `json:"value,omitempty"`
	Version       Version         `json:"version,omitempty"`
}

// TransferSlot is an index-addressed descriptor that says how to rebuild a
// transferred value from its accompanying handle(s) during decode. Slot
// index i corresponds to transferred-value i (spec.md P4); the adopted
// resolution of the slot-alignment question is value-to-slot 1:1, not
// value-to-handle — a single slot's HandleCount says how many consecutive
// entries in the frame's handle array belong to it, so one value may carry
// more than one handle (e.g. a node containing two buffers) without
// disturbing any other slot's indexing. A raw slot's original value is its
// own handle when it carries exactly one, or the ordered slice of its
// handles when it carries more; a handler slot's Substitute is the
// handler-produced stand-in passed to its Deserialize, together with just
// the handles belonging to that slot.
type TransferSlot struct {
	Kind        SlotKind `json:"kind"`
	HandlerName string   `json:"handlerName,omitempty"`
	Substitute  any      `json:"substitute,omitempty"`
	HandleCount int      `json:"handleCount,omitempty"`
}

// SlotKind discriminates a raw (host-native) transfer from one produced by a
// registered custom TransferHandler.
type SlotKind string

const (
	SlotRaw     SlotKind = "raw"
	SlotHandler SlotKind = "handler"
)

// RequestArgs is the args payload of a request, callback, or construct
// message: a positional argument tuple.
type RequestArgs []json.RawMessage

// ResponseArgs is the args payload of a response message. Exactly one of
// Error set, Stream true, or Result present is valid per spec.md §3.
type ResponseArgs struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorRecord    `json:"error,omitempty"`
	Stream bool            `json:"stream,omitempty"`
}

// StreamChunkArgs is the args payload of a stream-chunk message.
type StreamChunkArgs struct {
	Value json.RawMessage `json:"value,omitempty"`
}

// StreamErrorArgs is the args payload of a stream-error message.
type StreamErrorArgs struct {
	Error *ErrorRecord `json:"error"`
}
