package wire

import (
	"fmt"

	segjson "github.com/segmentio/encoding/json"
)

// Codec marshals and unmarshals argument/result values into and out of a
// Message's Args/Value/Result payload slots, under one of the two
// serialization formats the core supports by contract (spec.md §4.3.2).
// Both formats MUST round-trip the Message envelope itself; only value
// richness (dates, big integers, byte buffers, maps, sets) differs.
type Codec interface {
	Version() Version
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) (any, error)
}

// jsonCodec is the plain "json" format: primitives plus plain aggregates,
// backed by segmentio/encoding/json, a drop-in faster encoding/json used by
// the teacher across its own wire handling.
type jsonCodec struct{}

func (jsonCodec) Version() Version { return VersionJSON }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return segjson.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) (any, error) {
	if v == nil {
		var generic any
		if err := segjson.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("json codec: %w", err)
		}
		return generic, nil
	}
	if err := segjson.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("json codec: %w", err)
	}
	return v, nil
}

// JSONCodec is the default "json" format codec.
var JSONCodec Codec = jsonCodec{}

// CodecFor returns the codec for a serialization version, defaulting to
// SuperJSONCodec (the channel's own default; see spec.md §6.3) when version
// is empty.
func CodecFor(v Version) Codec {
	switch v {
	case VersionJSON:
		return JSONCodec
	case VersionSuperJSON, "":
		return SuperJSONCodec
	default:
		return SuperJSONCodec
	}
}
