package kkrpc

import (
	"encoding/json"
	"strings"
)

// Validator checks a single JSON value against a schema. *validate.
// SchemaValidator satisfies this; tests may supply a fake.
type Validator interface {
	Validate(data json.RawMessage) error
}

// ValidatorEntry pins the input and/or output schema for one exposed method.
// Either side may be nil, leaving that phase unchecked (spec.md §4.4.2).
type ValidatorEntry struct {
	Input  Validator
	Output Validator
}

// ValidatorTree is a flat, dotted-path lookup from method name to its
// validator entry; only leaves (full method paths) are keyed, mirroring the
// expose Tree's namespacing without needing the same nested shape.
type ValidatorTree map[string]ValidatorEntry

func (t ValidatorTree) lookup(method string) (ValidatorEntry, bool) {
	e, ok := t[method]
	return e, ok
}

// validateArgs checks a method's raw positional argument tuple (re-encoded
// as a single JSON array) against its input schema (spec.md §4.4.2, run
// strictly before any interceptor sees the call).
func validateArgs(method string, entry ValidatorEntry, args []json.RawMessage) error {
	if entry.Input == nil {
		return nil
	}
	tuple, err := json.Marshal(args)
	if err != nil {
		return &RPCValidationError{Phase: "input", Method: method, Issues: []string{err.Error()}}
	}
	if err := entry.Input.Validate(tuple); err != nil {
		return &RPCValidationError{Phase: "input", Method: method, Issues: []string{strings.TrimSpace(err.Error())}}
	}
	return nil
}

// validateResult checks a method's result value against its output schema,
// run once for a unary result or once per chunk for a streamed one
// (spec.md §4.4.2).
func validateResult(method string, entry ValidatorEntry, result any) error {
	if entry.Output == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return &RPCValidationError{Phase: "output", Method: method, Issues: []string{err.Error()}}
	}
	if err := entry.Output.Validate(data); err != nil {
		return &RPCValidationError{Phase: "output", Method: method, Issues: []string{strings.TrimSpace(err.Error())}}
	}
	return nil
}
