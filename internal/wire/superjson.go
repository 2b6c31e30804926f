package wire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"
)

// Set is an explicit, opt-in set type: a collection of distinct comparable
// elements that superjson preserves as a set rather than flattening it into
// a plain JSON array (which would lose the "distinct elements, no order"
// semantics on the decoding side).
type Set[T comparable] map[T]struct{}

// NewSet builds a Set from the given elements.
func NewSet[T comparable](elems ...T) Set[T] {
	s := make(Set[T], len(elems))
	for _, e := range elems {
		s[e] = struct{}{}
	}
	return s
}

const (
	sjTag      = "__sjType"
	sjValue    = "__sjValue"
	sjDate     = "date"
	sjBigInt   = "bigint"
	sjBytes    = "bytes"
	sjSet      = "set"
	sjMapKeyed = "map"
)

type superjsonCodec struct{}

// SuperJSONCodec is the richer "superjson" serialization format: in
// addition to everything "json" supports, it preserves time.Time, *big.Int,
// []byte, Set[T], and non-string-keyed maps across the wire by tagging them
// on encode and reconstructing the concrete Go type on decode, even when
// decoding into an `any` (spec.md §4.3.2).
var SuperJSONCodec Codec = superjsonCodec{}

func (superjsonCodec) Version() Version { return VersionSuperJSON }

func (superjsonCodec) Marshal(v any) ([]byte, error) {
	tagged, err := sjTagValue(reflect.ValueOf(v))
	if err != nil {
		return nil, fmt.Errorf("superjson codec: %w", err)
	}
	return json.Marshal(tagged)
}

func (superjsonCodec) Unmarshal(data []byte, v any) (any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("superjson codec: %w", err)
	}
	reconstructed := sjReconstruct(raw)

	if v == nil {
		return reconstructed, nil
	}
	// If the caller supplied a concrete destination, round-trip the
	// reconstructed tree through plain JSON into it; tagged rich values
	// have already been restored to their native Go form above, so a
	// destination expecting e.g. time.Time still unmarshals correctly via
	// its own UnmarshalJSON.
	again, err := json.Marshal(reconstructed)
	if err != nil {
		return nil, fmt.Errorf("superjson codec: %w", err)
	}
	if err := json.Unmarshal(again, v); err != nil {
		return nil, fmt.Errorf("superjson codec: %w", err)
	}
	return v, nil
}

// sjTagValue walks v and replaces rich types with tagged placeholder
// objects, recursing structurally through slices, arrays, maps, and struct
// fields. Identity cycles are not expected in serializable argument trees
// (transfer cycles are rejected earlier, by the transfer walker) so this
// walk does not itself track visited pointers; spec.md P5 only binds the
// transfer walker.
func sjTagValue(rv reflect.Value) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}
	// Values with their own JSON encoding (json.RawMessage, *ErrorRecord)
	// are embedded as the JSON they produce; time.Time and *big.Int keep
	// their tagged forms below.
	if rv.CanInterface() && !(rv.Kind() == reflect.Ptr && rv.IsNil()) {
		switch iv := rv.Interface().(type) {
		case time.Time, *big.Int:
		case json.Marshaler:
			data, err := iv.MarshalJSON()
			var generic any
			if err == nil {
				err = json.Unmarshal(data, &generic)
			}
			return generic, err
		}
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		if bi, ok := rv.Interface().(*big.Int); ok {
			return map[string]any{sjTag: sjBigInt, sjValue: bi.String()}, nil
		}
		return sjTagValue(rv.Elem())
	case reflect.Struct:
		if t, ok := rv.Interface().(time.Time); ok {
			return map[string]any{sjTag: sjDate, sjValue: t.Format(time.RFC3339Nano)}, nil
		}
		out := make(map[string]any, rv.NumField())
		rt := rv.Type()
		for i := range rv.NumField() {
			f := rt.Field(i)
			if !f.IsExported() {
				continue
			}
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				continue
			}
			if name == "" {
				name = f.Name
			}
			tagged, err := sjTagValue(rv.Field(i))
			if err != nil {
				return nil, err
			}
			out[name] = tagged
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return map[string]any{sjTag: sjBytes, sjValue: b}, nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			tagged, err := sjTagValue(rv.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = tagged
		}
		return out, nil
	case reflect.Map:
		if isSet(rv.Type()) {
			elems := make([]any, 0, rv.Len())
			for _, k := range rv.MapKeys() {
				tagged, err := sjTagValue(k)
				if err != nil {
					return nil, err
				}
				elems = append(elems, tagged)
			}
			return map[string]any{sjTag: sjSet, sjValue: elems}, nil
		}
		if rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			for _, k := range rv.MapKeys() {
				tagged, err := sjTagValue(rv.MapIndex(k))
				if err != nil {
					return nil, err
				}
				out[k.String()] = tagged
			}
			return out, nil
		}
		// Non-string-keyed map: preserve as an explicit list of pairs.
		pairs := make([]any, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			kt, err := sjTagValue(k)
			if err != nil {
				return nil, err
			}
			vt, err := sjTagValue(rv.MapIndex(k))
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, []any{kt, vt})
		}
		return map[string]any{sjTag: sjMapKeyed, sjValue: pairs}, nil
	default:
		return rv.Interface(), nil
	}
}

// isSet reports whether t is (or looks like) a Set[T]: map[T]struct{}.
func isSet(t reflect.Type) bool {
	return t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0
}

// sjReconstruct walks a decoded `any` tree (as produced by encoding/json,
// i.e. map[string]any / []any / primitives) and restores tagged rich
// values back into their native Go form.
func sjReconstruct(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if tag, ok := val[sjTag].(string); ok {
			inner := val[sjValue]
			switch tag {
			case sjDate:
				if s, ok := inner.(string); ok {
					if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
						return t
					}
				}
				return inner
			case sjBigInt:
				if s, ok := inner.(string); ok {
					if bi, ok := new(big.Int).SetString(s, 10); ok {
						return bi
					}
				}
				return inner
			case sjBytes:
				// json.Marshal encodes a []byte field as a base64
				// string; decoding into `any` yields that string back.
				if s, ok := inner.(string); ok {
					if b, err := base64.StdEncoding.DecodeString(s); err == nil {
						return b
					}
				}
				return inner
			case sjSet:
				// Decoded into `any`, a set surfaces as its distinct
				// element list; a caller that knows the element type
				// can recover Set[T] with NewSet(elems...).
				if arr, ok := inner.([]any); ok {
					out := make([]any, len(arr))
					for i, e := range arr {
						out[i] = sjReconstruct(e)
					}
					return out
				}
				return inner
			case sjMapKeyed:
				if arr, ok := inner.([]any); ok {
					out := make(map[any]any, len(arr))
					for _, pairAny := range arr {
						if pair, ok := pairAny.([]any); ok && len(pair) == 2 {
							out[sjReconstruct(pair[0])] = sjReconstruct(pair[1])
						}
					}
					return out
				}
				return inner
			}
		}
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = sjReconstruct(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = sjReconstruct(e)
		}
		return out
	default:
		return val
	}
}
