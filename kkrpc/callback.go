package kkrpc

import (
	"context"
	"runtime"
	"sync"
)

// CallbackFunc is a local function exposed to the peer as a callback
// argument. Invocation is fire-and-forget at the protocol level: errors are
// logged, never propagated (spec.md §4.2.4, §7).
type CallbackFunc func(args []any)

type callbackEntry struct {
	fn       CallbackFunc
	refcount int
	longLive bool
}

// callbackTable is the local side's mapping from callback id to the
// function it keeps alive, owned by whichever side passed a function
// argument out (spec.md "Local Callback Table").
type callbackTable struct {
	mu      sync.Mutex
	entries map[string]*callbackEntry
}

func newCallbackTable() *callbackTable {
	return &callbackTable{entries: make(map[string]*callbackEntry)}
}

func (t *callbackTable) register(id string, fn CallbackFunc, longLived bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[id]; ok {
		e.refcount++
		return
	}
	t.entries[id] = &callbackEntry{fn: fn, refcount: 1, longLive: longLived}
}

func (t *callbackTable) lookup(id string) (CallbackFunc, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return nil, false
	}
	return e.fn, true
}

// release drops one reference to id (spec.md invariant 3, "free" path);
// long-lived entries are only removed by an explicit release carrying the
// same refcount-to-zero semantics as call-scoped ones, since the lifetime
// distinction only controls *when* a release is sent, not how it is
// processed.
func (t *callbackTable) release(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return
	}
	e.refcount--
	if e.refcount <= 0 {
		delete(t.entries, id)
	}
}

// releaseCallScoped drops the call-scoped (non-long-lived) callbacks that
// were registered for a single originating request, once that request's
// pending entry is removed (SPEC_FULL.md §E.4).
func (t *callbackTable) releaseCallScoped(ids []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		e, ok := t.entries[id]
		if !ok || e.longLive {
			continue
		}
		e.refcount--
		if e.refcount <= 0 {
			delete(t.entries, id)
		}
	}
}

func (t *callbackTable) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]*callbackEntry)
}

// LongLivedCallback marks a callback argument as surviving past its
// originating call: the owning side releases it only when the peer's proxy
// sends callback-free (an explicit (*RemoteCallback).Release(), or the proxy
// being garbage-collected) or on channel destroy, never automatically when
// the call's pending entry is removed (SPEC_FULL.md §E.4).
type LongLivedCallback struct {
	Fn CallbackFunc
}

// NewLongLivedCallback wraps fn as a long-lived callback argument.
func NewLongLivedCallback(fn CallbackFunc) LongLivedCallback {
	return LongLivedCallback{Fn: fn}
}

// RemoteCallback is an invocable proxy bound on receipt of an argument
// tagged as a callback: calling it emits a callback frame to the peer. Its
// lifetime runs until it is garbage-collected locally (a finalizer emits
// callback-free) or the channel is destroyed (spec.md "Remote Callback
// Proxy").
type RemoteCallback struct {
	id       string
	ch       *Channel
	released bool
	mu       sync.Mutex
}

func newRemoteCallback(id string, ch *Channel) *RemoteCallback {
	rc := &RemoteCallback{id: id, ch: ch}
	runtime.AddCleanup(rc, func(id string) {
		ch.sendCallbackFree(id)
	}, id)
	return rc
}

// Invoke sends a callback frame carrying args to the peer. It is
// fire-and-forget: no response is expected or awaited.
func (rc *RemoteCallback) Invoke(ctx context.Context, args ...any) error {
	rc.mu.Lock()
	released := rc.released
	rc.mu.Unlock()
	if released {
		return newProtocolError("callback invoked after release")
	}
	return rc.ch.emitCallback(ctx, rc.id, args)
}

// Release proactively frees this proxy instead of waiting for garbage
// collection, used by long-lived callbacks (SPEC_FULL.md §E.4).
func (rc *RemoteCallback) Release() {
	rc.mu.Lock()
	if rc.released {
		rc.mu.Unlock()
		return
	}
	rc.released = true
	rc.mu.Unlock()
	rc.ch.sendCallbackFree(rc.id)
}
