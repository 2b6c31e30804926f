package kkrpc

import (
	"sync"
	"time"
)

// pendingResult is what a pending request resolves to: a decoded result
// value, or an error (possibly a RemoteError reconstructed from the peer's
// error record).
type pendingResult struct {
	value any
	err   error
}

// pendingEntry is the local record awaiting a peer response for a specific
// id (spec.md "Pending Request"). method/callbackIDs are retained so
// timeout errors can report method, and so call-scoped callbacks can be
// released once the entry is removed.
type pendingEntry struct {
	method      string
	callbackIDs []string
	resultCh    chan pendingResult
	timer       *time.Timer
	streamed    func(*ConsumerStream) // not set by the stream upgrade, which delivers the *ConsumerStream on resultCh
}

// pendingTable is the originating side's mapping from id to PendingRequest
// (spec.md "Pending Request" lifecycle, invariant 1 / P1).
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[string]*pendingEntry)}
}

func (t *pendingTable) add(id string, e *pendingEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = e
}

func (t *pendingTable) remove(id string) (*pendingEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	return e, ok
}

func (t *pendingTable) get(id string) (*pendingEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	return e, ok
}

// drainAll removes and returns every pending entry, used by destroy
// (invariant 7).
func (t *pendingTable) drainAll() []*pendingEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*pendingEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	t.entries = make(map[string]*pendingEntry)
	return out
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
