// Package validate wraps github.com/google/jsonschema-go/jsonschema into the
// thin surface kkrpc's validation pipeline needs, mirroring the shape of the
// teacher's own jsonschema/jsonschema.go wrapper package.
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Schema is a JSON Schema document.
type Schema = jsonschema.Schema

// ResolveOptions controls schema resolution (e.g. whether defaults are
// themselves validated against their own subschema).
type ResolveOptions = jsonschema.ResolveOptions

// SchemaValidator validates argument/result values against a single resolved
// JSON Schema, built once at registration time and reused for every call.
type SchemaValidator struct {
	resolved *jsonschema.Resolved
}

// NewSchemaValidator resolves schema once and returns a reusable validator.
func NewSchemaValidator(schema *Schema, opts *ResolveOptions) (*SchemaValidator, error) {
	resolved, err := schema.Resolve(opts)
	if err != nil {
		return nil, fmt.Errorf("validate: resolve schema: %w", err)
	}
	return &SchemaValidator{resolved: resolved}, nil
}

// ForType derives a JSON Schema from a Go type via reflection and resolves
// it, for handlers that would rather describe their shape with a struct than
// a hand-written schema document.
func ForType[T any]() (*SchemaValidator, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("validate: infer schema: %w", err)
	}
	return NewSchemaValidator(schema, &ResolveOptions{ValidateDefaults: true})
}

// Validate checks raw JSON data against the resolved schema, returning the
// schema library's own validation error unwrapped (kkrpc wraps it as an
// RPCValidationError with the issue text).
func (v *SchemaValidator) Validate(data json.RawMessage) error {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("validate: decode: %w", err)
	}
	return v.resolved.Validate(decoded)
}
