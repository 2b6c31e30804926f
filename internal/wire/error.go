package wire

import "encoding/json"

// ErrorRecord is the serialized form of a native error value: name, message,
// an optional stack trace, an optional cause chain, and any custom
// enumerable own properties the error carried. Decoding rebuilds a live
// error value from this, preserving all of the above (spec.md §4.3.5, P6).
type ErrorRecord struct {
	Name    string         `json:"name"`
	Message string         `json:"message"`
	Stack   string         `json:"stack,omitempty"`
	Cause   *ErrorRecord   `json:"cause,omitempty"`
	Extra   map[string]any `json:"-"`
}

// MarshalJSON flattens Extra alongside the named fields so custom properties
// round-trip as ordinary JSON object members rather than a nested bag.
func (e *ErrorRecord) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Extra)+4)
	for k, v := range e.Extra {
		m[k] = v
	}
	m["name"] = e.Name
	m["message"] = e.Message
	if e.Stack != "" {
		m["stack"] = e.Stack
	}
	if e.Cause != nil {
		m["cause"] = e.Cause
	}
	return json.Marshal(m)
}

// UnmarshalJSON reconstructs name/message/stack/cause and collects every
// other key into Extra.
func (e *ErrorRecord) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if raw, ok := m["name"]; ok {
		_ = json.Unmarshal(raw, &e.Name)
		delete(m, "name")
	}
	if raw, ok := m["message"]; ok {
		_ = json.Unmarshal(raw, &e.Message)
		delete(m, "message")
	}
	if raw, ok := m["stack"]; ok {
		_ = json.Unmarshal(raw, &e.Stack)
		delete(m, "stack")
	}
	if raw, ok := m["cause"]; ok {
		cause := &ErrorRecord{}
		if err := json.Unmarshal(raw, cause); err == nil {
			e.Cause = cause
		}
		delete(m, "cause")
	}
	if len(m) > 0 {
		e.Extra = make(map[string]any, len(m))
		for k, raw := range m {
			var v any
			if err := json.Unmarshal(raw, &v); err == nil {
				e.Extra[k] = v
			}
		}
	}
	return nil
}

// NewErrorRecord converts a native Go error into an ErrorRecord, following
// the cause chain to a finite depth and breaking cycles with a marker
// instead of looping (spec.md P5, applied here to the cause chain the same
// way it applies to transfer graphs).
func NewErrorRecord(err error) *ErrorRecord {
	return newErrorRecord(err, make(map[error]bool))
}

func newErrorRecord(err error, seen map[error]bool) *ErrorRecord {
	if err == nil {
		return nil
	}
	rec := &ErrorRecord{Name: errorName(err), Message: err.Error()}
	if se, ok := err.(StackTracer); ok {
		rec.Stack = se.Stack()
	}
	if props, ok := err.(PropertyError); ok {
		rec.Extra = props.Properties()
	}
	type causer interface{ Unwrap() error }
	if c, ok := err.(causer); ok {
		cause := c.Unwrap()
		if cause != nil {
			if seen[cause] {
				rec.Cause = &ErrorRecord{Name: "Error", Message: "[Circular]"}
				return rec
			}
			seen[cause] = true
			rec.Cause = newErrorRecord(cause, seen)
		}
	}
	return rec
}

// StackTracer is implemented by errors that carry a captured stack trace.
type StackTracer interface {
	Stack() string
}

// PropertyError is implemented by errors that carry custom enumerable
// properties beyond name/message/stack/cause.
type PropertyError interface {
	Properties() map[string]any
}

func errorName(err error) string {
	type named interface{ RPCName() string }
	if n, ok := err.(named); ok {
		return n.RPCName()
	}
	return "Error"
}

// ToError reconstructs a live error value from an ErrorRecord, preserving
// name, message, stack, cause (recursively), and custom properties.
func (e *ErrorRecord) ToError() error {
	if e == nil {
		return nil
	}
	var cause error
	if e.Cause != nil {
		cause = e.Cause.ToError()
	}
	return &RemoteError{
		ErrName: e.Name,
		Msg:     e.Message,
		Trace:   e.Stack,
		Cause_:  cause,
		Extra:   e.Extra,
	}
}

// RemoteError is the live error value reconstructed on decode for an error
// that originated on the peer. It is also the Go error type a handler on
// this side may return when it wants full control over the name/extra
// properties the peer observes.
type RemoteError struct {
	ErrName string
	Msg     string
	Trace   string
	Cause_  error
	Extra   map[string]any
}

func (e *RemoteError) Error() string { return e.Msg }
func (e *RemoteError) Unwrap() error { return e.Cause_ }
func (e *RemoteError) RPCName() string {
	if e.ErrName == "" {
		return "Error"
	}
	return e.ErrName
}
func (e *RemoteError) Stack() string             { return e.Trace }
func (e *RemoteError) Properties() map[string]any { return e.Extra }
