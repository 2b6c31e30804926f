package kkrpc

import (
	"context"
	"strings"
	"sync"
)

// UnaryHandler answers a request or construct call with a single result.
// Per spec.md §9 ("runtime type sniffing for streams... becomes an
// explicit handler contract"), whether a method streams is decided at
// registration time, never by inspecting the returned value.
type UnaryHandler func(ctx context.Context, args []any) (any, error)

// StreamHandler answers a request call with a StreamProducer; the channel
// announces {result:null, stream:true} and pumps chunks from it
// (spec.md §4.2.5).
type StreamHandler func(ctx context.Context, args []any) (StreamProducer, error)

// Tree is the nested expose map: name -> (UnaryHandler | StreamHandler |
// Tree | *Var). It is the local API surface a side makes callable from its
// peer (spec.md glossary, "Expose tree").
type Tree map[string]any

// Var is a settable, gettable property leaf in an expose tree. Plain Go
// values placed directly in a Tree are read-only properties; wrap a value
// in a Var to allow `set` to mutate it.
type Var struct {
	mu    sync.RWMutex
	value any
}

// NewVar wraps an initial value as a mutable property leaf.
func NewVar(v any) *Var {
	return &Var{value: v}
}

// Get returns the current value.
func (v *Var) Get() any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set replaces the current value.
func (v *Var) Set(x any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = x
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// resolve walks a dotted path through the expose tree, returning the leaf
// found there.
func (t Tree) resolve(segments []string) (any, bool) {
	if len(segments) == 0 {
		return t, true
	}
	cur := any(t)
	for i, seg := range segments {
		m, ok := cur.(Tree)
		if !ok {
			return nil, false
		}
		next, ok := m[seg]
		if !ok {
			return nil, false
		}
		if i == len(segments)-1 {
			return next, true
		}
		cur = next
	}
	return nil, false
}
