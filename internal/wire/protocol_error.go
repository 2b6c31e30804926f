package wire

// ProtocolError reports a malformed frame: an unknown message type, a
// transfer slot index out of range, or a placeholder consumed more than
// once in the same frame (spec.md §7).
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "kkrpc: protocol error: " + e.Reason }
