package wire

import (
	"encoding/json"
	"fmt"
)

// envelopeV2 wraps a Message with an explicit version/encoding tag. Unlike
// v1's bare Message, handles never travel inside the envelope itself — they
// ride alongside on the IO layer's structured-send path (transport.Frame.
// Handles) and are spliced back in by the caller after Decode returns
// (spec.md §4.3.1).
type envelopeV2 struct {
	Version  int     `json:"version"`
	Payload  Message `json:"payload"`
	Encoding string  `json:"encoding"`
}

// EncodeV1 serializes m as a bare, single-line Message frame.
func EncodeV1(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("wire: encode v1: %w", err)
	}
	return data, nil
}

// EncodeV2 serializes m as a v2 structured envelope. handles travel
// alongside, carried by the IO layer rather than embedded in the returned
// bytes.
func EncodeV2(m Message) ([]byte, error) {
	data, err := json.Marshal(envelopeV2{Version: 2, Payload: m, Encoding: "object"})
	if err != nil {
		return nil, fmt.Errorf("wire: encode v2: %w", err)
	}
	return data, nil
}

// Decode auto-detects whether data is a v1 bare Message or a v2 structured
// envelope and returns the unwrapped Message either way; receivers must
// accept both shapes regardless of local preference (spec.md §4.2.1).
func Decode(data []byte) (Message, error) {
	// A v1 Message carries a string "version" ("json"/"superjson"); only the
	// v2 envelope carries the number 2 there.
	var probe struct {
		Version any `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Message{}, fmt.Errorf("wire: decode: %w", err)
	}
	if n, ok := probe.Version.(float64); ok && n == 2 {
		var env envelopeV2
		if err := StrictDecode(data, &env); err != nil {
			return Message{}, fmt.Errorf("wire: decode v2 envelope: %w", err)
		}
		return env.Payload, nil
	}
	var m Message
	if err := StrictDecode(data, &m); err != nil {
		return Message{}, fmt.Errorf("wire: decode v1 message: %w", err)
	}
	return m, nil
}
