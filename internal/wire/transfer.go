package wire

import (
	"fmt"
	"reflect"
	"sync"
)

// Transfer is the explicit call-site wrapper that marks a value for
// zero-copy handoff, replacing the source runtime's weak-map side channel
// (spec.md §9): the weak association's double-transfer and retention bugs
// disappear because Transfer is an ordinary value consumed exactly once by
// the encoder.
type Transfer struct {
	Value   any
	Handles []any
}

// WithTransfer wraps value for transfer together with the handle(s) that
// back it.
func WithTransfer(value any, handles ...any) Transfer {
	return Transfer{Value: value, Handles: handles}
}

// TransferHandler lets a host register a custom type as transferable: its
// predicate recognizes the type, Serialize produces a JSON-safe substitute
// plus the handles to ship out-of-band, and Deserialize reverses that on
// the receiving side.
type TransferHandler interface {
	Name() string
	CanHandle(v any) bool
	Serialize(v any) (substitute any, handles []any, err error)
	Deserialize(substitute any, handles []any) (any, error)
}

// TransferRegistry is an explicit, channel-owned registry of custom
// TransferHandlers, replacing the source's global process-wide mutable
// registry (spec.md §9).
type TransferRegistry struct {
	mu       sync.RWMutex
	handlers []TransferHandler
	byName   map[string]TransferHandler
}

// NewTransferRegistry creates an empty registry.
func NewTransferRegistry() *TransferRegistry {
	return &TransferRegistry{byName: make(map[string]TransferHandler)}
}

// Register adds a handler, checked in registration order against each
// candidate value.
func (r *TransferRegistry) Register(h TransferHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
	r.byName[h.Name()] = h
}

func (r *TransferRegistry) find(v any) TransferHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.handlers {
		if h.CanHandle(v) {
			return h
		}
	}
	return nil
}

func (r *TransferRegistry) byNameLocked(name string) TransferHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

func placeholder(i int) string {
	return fmt.Sprintf("__kkrpc_transfer_%d", i)
}

// EncodeResult is the output of EncodeTransfers: the argument/result tree
// with transfer nodes replaced by placeholders, the parallel slot
// descriptors, and the handle values to ship alongside the frame.
type EncodeResult struct {
	Tree    any
	Slots   []TransferSlot
	Handles []any
}

// CycleError reports that encoding a value graph was refused because it
// contained a cycle crossing (or entirely made of) structural nodes; per
// spec.md §9 a cycle crossing a transfer-marked subtree has no well-defined
// reconstruction and MUST be refused rather than looped over (P5).
type CycleError struct{}

func (CycleError) Error() string { return "wire: cyclic value graph refused during transfer encode" }

// EncodeTransfers walks tree (a document-shaped value: map[string]any,
// []any, primitives, or a Transfer/custom-transferable node at any
// position) and extracts transferables per spec.md §4.3.3. An
// identity-tracking on-stack set breaks cycles by refusing them (P5)
// rather than looping; non-cyclic duplicate references to the same node
// are encoded independently, which is always well-defined for a tree-shaped
// document codec.
func EncodeTransfers(tree any, reg *TransferRegistry) (EncodeResult, error) {
	var slots []TransferSlot
	var handles []any
	onStack := make(map[any]bool)

	var walk func(v any) (any, error)
	walk = func(v any) (any, error) {
		if v == nil {
			return nil, nil
		}
		if t, ok := v.(Transfer); ok {
			idx := len(slots)
			slots = append(slots, TransferSlot{Kind: SlotRaw, HandleCount: len(t.Handles)})
			handles = append(handles, t.Handles...)
			return placeholder(idx), nil
		}
		if reg != nil {
			if h := reg.find(v); h != nil {
				sub, hs, err := h.Serialize(v)
				if err != nil {
					return nil, fmt.Errorf("transfer handler %q: %w", h.Name(), err)
				}
				idx := len(slots)
				slots = append(slots, TransferSlot{Kind: SlotHandler, HandlerName: h.Name(), Substitute: sub, HandleCount: len(hs)})
				handles = append(handles, hs...)
				return placeholder(idx), nil
			}
		}

		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Map:
			key := rv.Pointer()
			if onStack[key] {
				return nil, CycleError{}
			}
			onStack[key] = true
			defer delete(onStack, key)
			out := make(map[string]any, rv.Len())
			for _, k := range rv.MapKeys() {
				w, err := walk(rv.MapIndex(k).Interface())
				if err != nil {
					return nil, err
				}
				out[fmt.Sprint(k.Interface())] = w
			}
			return out, nil
		case reflect.Slice:
			if rv.IsNil() {
				return nil, nil
			}
			key := rv.Pointer()
			if onStack[key] {
				return nil, CycleError{}
			}
			onStack[key] = true
			defer delete(onStack, key)
			out := make([]any, rv.Len())
			for i := range out {
				w, err := walk(rv.Index(i).Interface())
				if err != nil {
					return nil, err
				}
				out[i] = w
			}
			return out, nil
		case reflect.Array:
			out := make([]any, rv.Len())
			for i := range out {
				w, err := walk(rv.Index(i).Interface())
				if err != nil {
					return nil, err
				}
				out[i] = w
			}
			return out, nil
		case reflect.Ptr:
			if rv.IsNil() {
				return nil, nil
			}
			key := rv.Pointer()
			if onStack[key] {
				return nil, CycleError{}
			}
			onStack[key] = true
			defer delete(onStack, key)
			return walk(rv.Elem().Interface())
		default:
			return v, nil
		}
	}

	out, err := walk(tree)
	if err != nil {
		return EncodeResult{}, err
	}
	return EncodeResult{Tree: out, Slots: slots, Handles: handles}, nil
}

// DecodeTransfers walks a decoded document tree and substitutes every
// placeholder "__kkrpc_transfer_<i>" in-place with the reconstruction of
// slot i (spec.md §4.3.4). It returns ProtocolError if a placeholder
// references a slot index out of range, or if the same slot is consumed
// more than once in the same frame (invariant 5).
func DecodeTransfers(tree any, slots []TransferSlot, handles []any, reg *TransferRegistry) (any, error) {
	consumed := make([]bool, len(slots))
	starts := slotHandleStarts(slots)

	var walk func(v any) (any, error)
	walk = func(v any) (any, error) {
		switch val := v.(type) {
		case string:
			idx, ok := parsePlaceholder(val)
			if !ok {
				return val, nil
			}
			if idx < 0 || idx >= len(slots) {
				return nil, &ProtocolError{Reason: fmt.Sprintf("transfer slot index %d out of range (have %d)", idx, len(slots))}
			}
			if consumed[idx] {
				return nil, &ProtocolError{Reason: fmt.Sprintf("transfer slot %d consumed more than once", idx)}
			}
			consumed[idx] = true
			slot := slots[idx]
			start, end := starts[idx], starts[idx]+slot.HandleCount
			if end > len(handles) {
				return nil, &ProtocolError{Reason: fmt.Sprintf("transfer slot %d wants %d handle(s) starting at %d, only %d available", idx, slot.HandleCount, start, len(handles))}
			}
			own := handles[start:end]
			switch slot.Kind {
			case SlotRaw:
				switch len(own) {
				case 0:
					return nil, &ProtocolError{Reason: fmt.Sprintf("no handle recorded for raw transfer slot %d", idx)}
				case 1:
					return own[0], nil
				default:
					out := make([]any, len(own))
					copy(out, own)
					return out, nil
				}
			case SlotHandler:
				if reg == nil {
					return nil, &ProtocolError{Reason: fmt.Sprintf("no transfer registry to handle slot %d (handler %q)", idx, slot.HandlerName)}
				}
				h := reg.byNameLocked(slot.HandlerName)
				if h == nil {
					return nil, &ProtocolError{Reason: fmt.Sprintf("unknown transfer handler %q for slot %d", slot.HandlerName, idx)}
				}
				return h.Deserialize(slot.Substitute, own)
			default:
				return nil, &ProtocolError{Reason: fmt.Sprintf("unknown transfer slot kind %q", slot.Kind)}
			}
		case map[string]any:
			out := make(map[string]any, len(val))
			for k, e := range val {
				w, err := walk(e)
				if err != nil {
					return nil, err
				}
				out[k] = w
			}
			return out, nil
		case []any:
			out := make([]any, len(val))
			for i, e := range val {
				w, err := walk(e)
				if err != nil {
					return nil, err
				}
				out[i] = w
			}
			return out, nil
		default:
			return val, nil
		}
	}

	return walk(tree)
}

// slotHandleStarts returns, for each slot, the index into the frame's flat
// handle array where that slot's own handles begin. Slots are serialized
// (and therefore decoded) in a fixed order, so a running sum of HandleCount
// up to i gives slot i's span regardless of the order placeholders happen
// to be visited while walking the decoded tree.
func slotHandleStarts(slots []TransferSlot) []int {
	starts := make([]int, len(slots))
	offset := 0
	for i, s := range slots {
		starts[i] = offset
		offset += s.HandleCount
	}
	return starts
}

func parsePlaceholder(s string) (int, bool) {
	const prefix = "__kkrpc_transfer_"
	if len(s) <= len(prefix) || s[:len(prefix)] != prefix {
		return 0, false
	}
	n := 0
	for _, c := range s[len(prefix):] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
