package kkrpc

import (
	"fmt"

	"github.com/google/uuid"
)

func callbackPlaceholder(i int) string {
	return fmt.Sprintf("__kkrpc_callback_%d", i)
}

func parseCallbackPlaceholder(s string) (int, bool) {
	const prefix = "__kkrpc_callback_"
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

// encodeCallbacks walks an outgoing argument tree, replacing each
// CallbackFunc value with a placeholder string addressed by index into the
// returned id list; the generated uuid is what the placeholder's index
// resolves to, mirroring the transfer-slot placeholder scheme so both
// schemes can coexist in the same tree (spec.md §4.2.4).
func (c *Channel) encodeCallbacks(tree any) (any, []string, error) {
	var ids []string

	var walk func(v any) any
	walk = func(v any) any {
		switch val := v.(type) {
		case CallbackFunc:
			idx := len(ids)
			id := uuid.NewString()
			ids = append(ids, id)
			c.callbacks.register(id, val, false)
			return callbackPlaceholder(idx)
		case LongLivedCallback:
			idx := len(ids)
			id := uuid.NewString()
			ids = append(ids, id)
			c.callbacks.register(id, val.Fn, true)
			return callbackPlaceholder(idx)
		case map[string]any:
			out := make(map[string]any, len(val))
			for k, e := range val {
				out[k] = walk(e)
			}
			return out
		case []any:
			out := make([]any, len(val))
			for i, e := range val {
				out[i] = walk(e)
			}
			return out
		default:
			return v
		}
	}
	return walk(tree), ids, nil
}

// decodeCallbacks walks an inbound, transfer-resolved argument tree,
// replacing each callback placeholder with a live *RemoteCallback bound to
// the id the peer announced at that index.
func (c *Channel) decodeCallbacks(tree any, ids []string) (any, error) {
	var walkErr error
	var walk func(v any) any
	walk = func(v any) any {
		switch val := v.(type) {
		case string:
			idx, ok := parseCallbackPlaceholder(val)
			if !ok {
				return val
			}
			if idx < 0 || idx >= len(ids) {
				walkErr = newProtocolError(fmt.Sprintf("callback placeholder index %d out of range (have %d)", idx, len(ids)))
				return val
			}
			return newRemoteCallback(ids[idx], c)
		case map[string]any:
			out := make(map[string]any, len(val))
			for k, e := range val {
				out[k] = walk(e)
			}
			return out
		case []any:
			out := make([]any, len(val))
			for i, e := range val {
				out[i] = walk(e)
			}
			return out
		default:
			return val
		}
	}
	out := walk(tree)
	return out, walkErr
}
