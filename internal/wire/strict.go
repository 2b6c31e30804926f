package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// StrictDecode unmarshals data into v, rejecting two ways a peer could
// smuggle a field past a case-sensitive routing check on "type"/"method":
// a key that differs from a sibling key only by case, or a key whose case
// differs from v's own json tag (a same-shape key DisallowUnknownFields
// alone wouldn't catch, since stdlib's decoder resolves field names
// case-insensitively and would happily bind "Method" to the Method field).
// Every inbound frame is decoded through this path before its type is
// switched on (see Channel's read loop).
//
// The underlying technique — detect case-variant duplicates and case
// mismatches ahead of a DisallowUnknownFields decode — isn't specific to
// kkrpc's wire shape; it defends against a property of Go's json package,
// the same threat any JSON-RPC-style envelope faces. It is adapted here
// with the decode target generalized from the teacher's JSON-RPC 2.0
// envelope to kkrpc's Message/envelope types, and the two original passes
// (duplicate-key detection, field-case validation) collapsed into one
// recursive walk instead of two separate traversals of the same object.
func StrictDecode(data []byte, v any) error {
	if err := validateKeyCasing(data, v); err != nil {
		return fmt.Errorf("strict decode: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("strict decode: %w", err)
	}
	return nil
}

// validateKeyCasing walks data looking for case-variant keys at every
// nesting level, and additionally checks the root object's keys against
// v's own json-tagged field names (nested objects have no struct to check
// against from here, so only case-duplicate detection applies below the
// root).
func validateKeyCasing(data []byte, v any) error {
	return validateKeyCasingRecursive(data, expectedFieldNames(v))
}

func validateKeyCasingRecursive(data json.RawMessage, expected map[string]bool) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		seenLower := make(map[string]string, len(obj))
		for key := range obj {
			lower := strings.ToLower(key)
			if original, dup := seenLower[lower]; dup && original != key {
				return fmt.Errorf("duplicate key with different case: %q and %q", original, key)
			}
			seenLower[lower] = key

			if expected != nil && !expected[key] {
				for exp := range expected {
					if strings.ToLower(exp) == lower {
						return fmt.Errorf("field name case mismatch: got %q, expected %q", key, exp)
					}
				}
			}
		}
		for key, val := range obj {
			if err := validateKeyCasingRecursive(val, nil); err != nil {
				return fmt.Errorf("in field %q: %w", key, err)
			}
		}
		return nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil {
		for i, elem := range arr {
			if err := validateKeyCasingRecursive(elem, nil); err != nil {
				return fmt.Errorf("in array index %d: %w", i, err)
			}
		}
	}
	return nil
}

// expectedFieldNames extracts the json-tagged field names of v's struct
// type (dereferencing pointers), or nil if v isn't backed by a struct.
func expectedFieldNames(v any) map[string]bool {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	fields := make(map[string]bool, t.NumField())
	for i := range t.NumField() {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		if idx := strings.Index(tag, ","); idx != -1 {
			tag = tag[:idx]
		}
		if tag != "" {
			fields[tag] = true
		}
	}
	return fields
}
