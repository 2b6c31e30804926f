package kkrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kunkunsh/kkrpc-go/internal/wire"
	"github.com/kunkunsh/kkrpc-go/transport"
)

// Channel is one side of a bidirectional kkrpc connection: it owns the
// transport's single write path, the inflight request/stream/callback
// tables, the local expose tree, and the interceptor/validator pipeline
// (spec.md §4.2, C2). A Channel is safe for concurrent use; Call/Get/Set/
// Construct may be invoked from multiple goroutines, and inbound requests
// are dispatched to user handlers concurrently.
type Channel struct {
	io  transport.IO
	cfg channelConfig
	log *slog.Logger

	writeMu sync.Mutex

	pending   *pendingTable
	callbacks *callbackTable

	streamMu        sync.Mutex
	outboundStreams map[string]*outboundStream
	consumerStreams map[string]*ConsumerStream

	destroyed atomic.Bool
}

// NewChannel wires io into a running Channel: a background goroutine begins
// reading frames immediately, dispatching each to the appropriate handler.
func NewChannel(io transport.IO, opts ...Option) *Channel {
	cfg := defaultChannelConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	c := &Channel{
		io:              io,
		cfg:             cfg,
		log:             cfg.logger,
		pending:         newPendingTable(),
		callbacks:       newCallbackTable(),
		outboundStreams: make(map[string]*outboundStream),
		consumerStreams: make(map[string]*ConsumerStream),
	}
	go c.readLoop()
	return c
}

func (c *Channel) outVersion() wire.Version {
	if c.cfg.version == PreferJSON {
		return wire.VersionJSON
	}
	return wire.VersionSuperJSON
}

func (c *Channel) readLoop() {
	ctx := context.Background()
	for {
		frame, err := c.io.Read(ctx)
		if err != nil {
			c.Destroy()
			return
		}
		m, err := wire.Decode(frame.Data)
		if err != nil {
			c.log.Warn("kkrpc: dropping malformed frame", "error", err)
			continue
		}
		c.handleMessage(ctx, m, frame.Handles)
	}
}

func (c *Channel) handleMessage(ctx context.Context, m wire.Message, handles []any) {
	switch m.Type {
	case wire.TypeRequest:
		go c.handleRequest(ctx, m, handles)
	case wire.TypeConstruct:
		go c.handleConstruct(ctx, m, handles)
	case wire.TypeGet:
		go c.handleGet(ctx, m)
	case wire.TypeSet:
		go c.handleSet(ctx, m, handles)
	case wire.TypeResponse:
		c.handleResponse(m, handles)
	case wire.TypeCallback:
		c.handleCallback(ctx, m, handles)
	case wire.TypeCallbackFree:
		c.callbacks.release(m.ID)
	case wire.TypeStreamChunk:
		c.handleStreamChunk(m, handles)
	case wire.TypeStreamEnd:
		c.handleStreamEnd(m)
	case wire.TypeStreamError:
		c.handleStreamError(m)
	case wire.TypeStreamCancel:
		c.handleStreamCancel(m)
	default:
		c.log.Warn("kkrpc: unknown message type", "type", m.Type)
	}
}

// send frames and writes m. Handles travel only alongside a v2 envelope;
// a non-empty handle list against a transport that can't carry them is
// refused rather than silently dropped.
func (c *Channel) send(ctx context.Context, m wire.Message, handles []any) error {
	if len(handles) > 0 && !c.io.Capabilities().Transfer {
		return newProtocolError("transport does not support transfer handles")
	}
	var data []byte
	var err error
	if len(handles) > 0 {
		data, err = wire.EncodeV2(m)
	} else {
		data, err = wire.EncodeV1(m)
	}
	if err != nil {
		return err
	}
	wireHandles := handles
	if len(handles) > 0 {
		wireHandles = neuterRawHandles(handles)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.io.Write(ctx, transport.Frame{Data: data, Handles: wireHandles})
}

// --- Originating side: Call / Get / Set / Construct ---

// Call invokes a method exposed by the peer and waits for its response. If
// the peer announces a streamed result, the returned value is a
// *ConsumerStream instead of a plain result (spec.md §4.2.5).
func (c *Channel) Call(ctx context.Context, method string, args ...any) (any, error) {
	return c.request(ctx, wire.TypeRequest, method, args)
}

// Construct invokes a construct-flavored method. On this side it behaves
// like Call; the peer resolves the method the same way but invokes the
// handler without the interceptor chain (see handleConstruct).
func (c *Channel) Construct(ctx context.Context, method string, args ...any) (any, error) {
	return c.request(ctx, wire.TypeConstruct, method, args)
}

func (c *Channel) request(ctx context.Context, typ wire.MessageType, method string, args []any) (any, error) {
	if c.destroyed.Load() {
		return nil, &RPCDestroyedError{}
	}
	codec := wire.CodecFor(c.outVersion())
	tree, cbIDs, err := c.encodeCallbacks(any(args))
	if err != nil {
		return nil, err
	}
	encRes, err := wire.EncodeTransfers(tree, c.cfg.transfers)
	if err != nil {
		return nil, err
	}
	raw, err := codec.Marshal(encRes.Tree)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	m := wire.Message{
		ID: id, Method: method, Type: typ, Args: raw,
		CallbackIDs: cbIDs, TransferSlots: encRes.Slots, Version: c.outVersion(),
	}
	return c.awaitResponse(ctx, id, method, cbIDs, m, encRes.Handles)
}

// Get reads a property exposed by the peer at a dotted path.
func (c *Channel) Get(ctx context.Context, path string) (any, error) {
	if c.destroyed.Load() {
		return nil, &RPCDestroyedError{}
	}
	id := uuid.NewString()
	m := wire.Message{ID: id, Method: path, Type: wire.TypeGet, Version: c.outVersion()}
	return c.awaitResponse(ctx, id, path, nil, m, nil)
}

// Set writes a property exposed by the peer at a dotted path.
func (c *Channel) Set(ctx context.Context, path string, value any) (any, error) {
	if c.destroyed.Load() {
		return nil, &RPCDestroyedError{}
	}
	codec := wire.CodecFor(c.outVersion())
	tree, cbIDs, err := c.encodeCallbacks(value)
	if err != nil {
		return nil, err
	}
	encRes, err := wire.EncodeTransfers(tree, c.cfg.transfers)
	if err != nil {
		return nil, err
	}
	raw, err := codec.Marshal(encRes.Tree)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	m := wire.Message{
		ID: id, Method: path, Type: wire.TypeSet, Value: raw,
		CallbackIDs: cbIDs, TransferSlots: encRes.Slots, Version: c.outVersion(),
	}
	return c.awaitResponse(ctx, id, path, cbIDs, m, encRes.Handles)
}

func (c *Channel) awaitResponse(ctx context.Context, id, method string, cbIDs []string, m wire.Message, handles []any) (any, error) {
	resultCh := make(chan pendingResult, 1)
	entry := &pendingEntry{method: method, callbackIDs: cbIDs, resultCh: resultCh}
	c.pending.add(id, entry)

	if c.cfg.timeout > 0 {
		entry.timer = time.AfterFunc(c.cfg.timeout, func() {
			if e, ok := c.pending.remove(id); ok {
				c.callbacks.releaseCallScoped(e.callbackIDs)
				deliver(e.resultCh, pendingResult{err: &RPCTimeoutError{Method: method, TimeoutMs: c.cfg.timeout.Milliseconds()}})
			}
		})
	}

	if err := c.send(ctx, m, handles); err != nil {
		if e, ok := c.pending.remove(id); ok && e.timer != nil {
			e.timer.Stop()
		}
		c.callbacks.releaseCallScoped(cbIDs)
		return nil, err
	}

	select {
	case res := <-resultCh:
		return res.value, res.err
	case <-ctx.Done():
		if e, ok := c.pending.remove(id); ok && e.timer != nil {
			e.timer.Stop()
		}
		c.callbacks.releaseCallScoped(cbIDs)
		return nil, ctx.Err()
	}
}

func deliver(ch chan pendingResult, res pendingResult) {
	select {
	case ch <- res:
	default:
	}
}

func (c *Channel) handleResponse(m wire.Message, handles []any) {
	entry, ok := c.pending.remove(m.ID)
	if !ok {
		return
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	codec := wire.CodecFor(m.Version)

	var ra wire.ResponseArgs
	if len(m.Args) > 0 {
		if _, err := codec.Unmarshal(m.Args, &ra); err != nil {
			c.callbacks.releaseCallScoped(entry.callbackIDs)
			deliver(entry.resultCh, pendingResult{err: newProtocolError("bad response payload: " + err.Error())})
			return
		}
	}
	if ra.Error != nil {
		c.callbacks.releaseCallScoped(entry.callbackIDs)
		deliver(entry.resultCh, pendingResult{err: ra.Error.ToError()})
		return
	}
	if ra.Stream {
		cs := newConsumerStream(m.ID, c)
		c.streamMu.Lock()
		c.consumerStreams[m.ID] = cs
		c.streamMu.Unlock()
		deliver(entry.resultCh, pendingResult{value: cs})
		return
	}

	var result any
	if len(ra.Result) > 0 {
		decoded, _ := codec.Unmarshal(ra.Result, nil)
		tree, err := wire.DecodeTransfers(decoded, m.TransferSlots, handles, c.cfg.transfers)
		if err != nil {
			c.callbacks.releaseCallScoped(entry.callbackIDs)
			deliver(entry.resultCh, pendingResult{err: err})
			return
		}
		tree, err = c.decodeCallbacks(tree, m.CallbackIDs)
		if err != nil {
			c.callbacks.releaseCallScoped(entry.callbackIDs)
			deliver(entry.resultCh, pendingResult{err: err})
			return
		}
		result = tree
	}
	c.callbacks.releaseCallScoped(entry.callbackIDs)
	deliver(entry.resultCh, pendingResult{value: result})
}

// --- Receiving side: request / get / set dispatch ---

func splitRawArgs(data json.RawMessage) []json.RawMessage {
	if len(data) == 0 {
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil
	}
	return raws
}

func (c *Channel) decodeInbound(m wire.Message, handles []any) (any, error) {
	if len(m.Args) == 0 {
		return nil, nil
	}
	codec := wire.CodecFor(m.Version)
	decoded, err := codec.Unmarshal(m.Args, nil)
	if err != nil {
		return nil, err
	}
	tree, err := wire.DecodeTransfers(decoded, m.TransferSlots, handles, c.cfg.transfers)
	if err != nil {
		return nil, err
	}
	return c.decodeCallbacks(tree, m.CallbackIDs)
}

// handleRequest dispatches an inbound "request" message: the only message
// type the interceptor chain wraps (spec.md §4.4.1, "not get/set/construct/
// callback").
func (c *Channel) handleRequest(ctx context.Context, m wire.Message, handles []any) {
	c.dispatchInbound(ctx, m, handles, true)
}

// handleConstruct dispatches an inbound "construct" message. Validation
// still runs (§4.4.2 is keyed by method path, not message type), but the
// handler is invoked directly: middleware is pinned to request dispatch
// only, so a construct call never passes through registered interceptors
// such as RateLimitMiddleware.
func (c *Channel) handleConstruct(ctx context.Context, m wire.Message, handles []any) {
	c.dispatchInbound(ctx, m, handles, false)
}

func (c *Channel) dispatchInbound(ctx context.Context, m wire.Message, handles []any, wrapMiddleware bool) {
	leaf, ok := c.cfg.expose.resolve(splitPath(m.Method))
	if !ok {
		c.sendErrorResponse(ctx, m.ID, &MethodNotFoundError{Method: m.Method})
		return
	}

	argsTree, err := c.decodeInbound(m, handles)
	if err != nil {
		c.sendErrorResponse(ctx, m.ID, err)
		return
	}
	argsSlice, _ := argsTree.([]any)

	entry, hasValidator := c.cfg.validators.lookup(m.Method)
	if hasValidator {
		if err := validateArgs(m.Method, entry, splitRawArgs(m.Args)); err != nil {
			c.sendErrorResponse(ctx, m.ID, err)
			return
		}
	}

	req := &Request{Method: m.Method, Args: argsSlice, State: make(map[string]any)}

	switch h := leaf.(type) {
	case UnaryHandler:
		var handler MethodHandler = func(ctx context.Context, r *Request) (any, error) {
			return h(ctx, r.Args)
		}
		if wrapMiddleware {
			handler = chain(c.cfg.middlewares, handler)
		}
		result, err := handler(ctx, req)
		if err != nil {
			c.sendErrorResponse(ctx, m.ID, err)
			return
		}
		if hasValidator {
			if verr := validateResult(m.Method, entry, result); verr != nil {
				c.sendErrorResponse(ctx, m.ID, verr)
				return
			}
		}
		c.sendResult(ctx, m.ID, result)
	case StreamHandler:
		var handler MethodHandler = func(ctx context.Context, r *Request) (any, error) {
			return h(ctx, r.Args)
		}
		if wrapMiddleware {
			handler = chain(c.cfg.middlewares, handler)
		}
		result, err := handler(ctx, req)
		if err != nil {
			c.sendErrorResponse(ctx, m.ID, err)
			return
		}
		producer, _ := result.(StreamProducer)
		c.startOutboundStream(ctx, m.ID, m.Method, producer, entry, hasValidator)
	default:
		c.sendErrorResponse(ctx, m.ID, &MethodNotFoundError{Method: m.Method})
	}
}

func (c *Channel) handleGet(ctx context.Context, m wire.Message) {
	leaf, ok := c.cfg.expose.resolve(splitPath(m.Method))
	if !ok {
		c.sendErrorResponse(ctx, m.ID, &MethodNotFoundError{Method: m.Method})
		return
	}
	var value any
	if v, ok := leaf.(*Var); ok {
		value = v.Get()
	} else {
		value = leaf
	}
	c.sendResult(ctx, m.ID, value)
}

func (c *Channel) handleSet(ctx context.Context, m wire.Message, handles []any) {
	leaf, ok := c.cfg.expose.resolve(splitPath(m.Method))
	if !ok {
		c.sendErrorResponse(ctx, m.ID, &MethodNotFoundError{Method: m.Method})
		return
	}
	v, ok := leaf.(*Var)
	if !ok {
		c.sendErrorResponse(ctx, m.ID, newProtocolError(fmt.Sprintf("set target is not settable: %q", m.Method)))
		return
	}
	var value any
	if len(m.Value) > 0 {
		codec := wire.CodecFor(m.Version)
		decoded, err := codec.Unmarshal(m.Value, nil)
		if err != nil {
			c.sendErrorResponse(ctx, m.ID, err)
			return
		}
		value, err = wire.DecodeTransfers(decoded, m.TransferSlots, handles, c.cfg.transfers)
		if err != nil {
			c.sendErrorResponse(ctx, m.ID, err)
			return
		}
	}
	v.Set(value)
	c.sendResult(ctx, m.ID, nil)
}

func (c *Channel) sendResult(ctx context.Context, id string, result any) {
	codec := wire.CodecFor(c.outVersion())
	tree, cbIDs, err := c.encodeCallbacks(result)
	if err != nil {
		c.sendErrorResponse(ctx, id, err)
		return
	}
	encRes, err := wire.EncodeTransfers(tree, c.cfg.transfers)
	if err != nil {
		c.sendErrorResponse(ctx, id, err)
		return
	}
	raw, err := codec.Marshal(encRes.Tree)
	if err != nil {
		c.sendErrorResponse(ctx, id, err)
		return
	}
	resultRaw, err := codec.Marshal(wire.ResponseArgs{Result: raw})
	if err != nil {
		c.sendErrorResponse(ctx, id, err)
		return
	}
	m := wire.Message{
		ID: id, Type: wire.TypeResponse, Args: resultRaw,
		CallbackIDs: cbIDs, TransferSlots: encRes.Slots, Version: c.outVersion(),
	}
	_ = c.send(ctx, m, encRes.Handles)
}

func (c *Channel) sendErrorResponse(ctx context.Context, id string, err error) {
	rec := wire.NewErrorRecord(err)
	raw, mErr := wire.CodecFor(c.outVersion()).Marshal(wire.ResponseArgs{Error: rec})
	if mErr != nil {
		raw = json.RawMessage(`{"error":{"name":"Error","message":"kkrpc: failed to marshal error"}}`)
	}
	m := wire.Message{ID: id, Type: wire.TypeResponse, Args: raw, Version: c.outVersion()}
	_ = c.send(ctx, m, nil)
}

// --- Server-streamed sequences ---

func (c *Channel) startOutboundStream(ctx context.Context, id, method string, prod StreamProducer, entry ValidatorEntry, hasValidator bool) {
	if prod == nil {
		c.sendErrorResponse(ctx, id, newProtocolError("stream handler returned a nil producer"))
		return
	}
	ackRaw, err := wire.CodecFor(c.outVersion()).Marshal(wire.ResponseArgs{Stream: true})
	if err != nil {
		c.sendErrorResponse(ctx, id, err)
		return
	}
	if err := c.send(ctx, wire.Message{ID: id, Type: wire.TypeResponse, Args: ackRaw, Version: c.outVersion()}, nil); err != nil {
		return
	}

	ob := &outboundStream{}
	c.streamMu.Lock()
	c.outboundStreams[id] = ob
	c.streamMu.Unlock()

	go func() {
		defer func() {
			c.streamMu.Lock()
			delete(c.outboundStreams, id)
			c.streamMu.Unlock()
		}()
		for {
			if ob.cancelled.Load() {
				return
			}
			v, ok, err := prod.Next(ctx)
			if err != nil {
				c.emitStreamError(ctx, id, err)
				return
			}
			if !ok {
				c.emitStreamEnd(ctx, id)
				return
			}
			if hasValidator {
				if verr := validateResult(method, entry, v); verr != nil {
					c.emitStreamError(ctx, id, verr)
					return
				}
			}
			c.emitStreamChunk(ctx, id, v)
		}
	}()
}

func (c *Channel) emitStreamChunk(ctx context.Context, id string, value any) {
	codec := wire.CodecFor(c.outVersion())
	tree, cbIDs, err := c.encodeCallbacks(value)
	if err != nil {
		c.emitStreamError(ctx, id, err)
		return
	}
	encRes, err := wire.EncodeTransfers(tree, c.cfg.transfers)
	if err != nil {
		c.emitStreamError(ctx, id, err)
		return
	}
	raw, err := codec.Marshal(encRes.Tree)
	if err != nil {
		c.emitStreamError(ctx, id, err)
		return
	}
	chunkRaw, err := codec.Marshal(wire.StreamChunkArgs{Value: raw})
	if err != nil {
		c.emitStreamError(ctx, id, err)
		return
	}
	m := wire.Message{
		ID: id, Type: wire.TypeStreamChunk, Args: chunkRaw,
		CallbackIDs: cbIDs, TransferSlots: encRes.Slots, Version: c.outVersion(),
	}
	_ = c.send(ctx, m, encRes.Handles)
}

func (c *Channel) emitStreamEnd(ctx context.Context, id string) {
	_ = c.send(ctx, wire.Message{ID: id, Type: wire.TypeStreamEnd, Version: c.outVersion()}, nil)
}

func (c *Channel) emitStreamError(ctx context.Context, id string, err error) {
	rec := wire.NewErrorRecord(err)
	raw, mErr := wire.CodecFor(c.outVersion()).Marshal(wire.StreamErrorArgs{Error: rec})
	if mErr != nil {
		return
	}
	_ = c.send(ctx, wire.Message{ID: id, Type: wire.TypeStreamError, Args: raw, Version: c.outVersion()}, nil)
}

func (c *Channel) emitStreamCancel(ctx context.Context, id string) {
	_ = c.send(ctx, wire.Message{ID: id, Type: wire.TypeStreamCancel, Version: c.outVersion()}, nil)
}

func (c *Channel) dropStream(id string) {
	c.streamMu.Lock()
	delete(c.consumerStreams, id)
	c.streamMu.Unlock()
}

func (c *Channel) handleStreamChunk(m wire.Message, handles []any) {
	c.streamMu.Lock()
	cs, ok := c.consumerStreams[m.ID]
	c.streamMu.Unlock()
	if !ok {
		return
	}
	codec := wire.CodecFor(m.Version)
	var sc wire.StreamChunkArgs
	if len(m.Args) > 0 {
		if _, err := codec.Unmarshal(m.Args, &sc); err != nil {
			cs.closeError(newProtocolError("bad stream chunk: " + err.Error()))
			return
		}
	}
	var value any
	if len(sc.Value) > 0 {
		decoded, err := codec.Unmarshal(sc.Value, nil)
		if err != nil {
			cs.closeError(err)
			return
		}
		tree, err := wire.DecodeTransfers(decoded, m.TransferSlots, handles, c.cfg.transfers)
		if err != nil {
			cs.closeError(err)
			return
		}
		tree, err = c.decodeCallbacks(tree, m.CallbackIDs)
		if err != nil {
			cs.closeError(err)
			return
		}
		value = tree
	}
	cs.enqueue(value)
}

func (c *Channel) handleStreamEnd(m wire.Message) {
	c.streamMu.Lock()
	cs, ok := c.consumerStreams[m.ID]
	delete(c.consumerStreams, m.ID)
	c.streamMu.Unlock()
	if ok {
		cs.closeEnd()
	}
}

func (c *Channel) handleStreamError(m wire.Message) {
	c.streamMu.Lock()
	cs, ok := c.consumerStreams[m.ID]
	delete(c.consumerStreams, m.ID)
	c.streamMu.Unlock()
	if !ok {
		return
	}
	codec := wire.CodecFor(m.Version)
	var se wire.StreamErrorArgs
	if len(m.Args) > 0 {
		_, _ = codec.Unmarshal(m.Args, &se)
	}
	var err error
	if se.Error != nil {
		err = se.Error.ToError()
	} else {
		err = newProtocolError("stream-error frame carried no error detail")
	}
	cs.closeError(err)
}

func (c *Channel) handleStreamCancel(m wire.Message) {
	c.streamMu.Lock()
	ob, ok := c.outboundStreams[m.ID]
	c.streamMu.Unlock()
	if ok {
		ob.cancelled.Store(true)
	}
}

// --- Callbacks ---

func (c *Channel) handleCallback(ctx context.Context, m wire.Message, handles []any) {
	fn, ok := c.callbacks.lookup(m.ID)
	if !ok {
		return
	}
	argsTree, err := c.decodeInbound(m, handles)
	if err != nil {
		c.log.Warn("kkrpc: dropping malformed callback frame", "error", err)
		return
	}
	argsSlice, _ := argsTree.([]any)
	go fn(argsSlice)
}

func (c *Channel) emitCallback(ctx context.Context, id string, args []any) error {
	codec := wire.CodecFor(c.outVersion())
	tree, cbIDs, err := c.encodeCallbacks(any(args))
	if err != nil {
		return err
	}
	encRes, err := wire.EncodeTransfers(tree, c.cfg.transfers)
	if err != nil {
		return err
	}
	raw, err := codec.Marshal(encRes.Tree)
	if err != nil {
		return err
	}
	m := wire.Message{
		ID: id, Type: wire.TypeCallback, Args: raw,
		CallbackIDs: cbIDs, TransferSlots: encRes.Slots, Version: c.outVersion(),
	}
	return c.send(ctx, m, encRes.Handles)
}

func (c *Channel) sendCallbackFree(id string) {
	_ = c.send(context.Background(), wire.Message{ID: id, Type: wire.TypeCallbackFree, Version: c.outVersion()}, nil)
}

// --- Teardown ---

// Destroy tears the channel down (invariant 7): every pending call resolves
// with RPCDestroyedError, every open consumer stream terminates with it,
// every outbound stream pump stops at its next Next() check, the callback
// table is cleared, and the transport is closed. No further frames are
// emitted; per this module's adopted resolution of spec.md §9 ("graceful
// stream close on destroy"), destroy is silent rather than attempting a
// final round of stream-cancel/stream-error frames.
func (c *Channel) Destroy() {
	if !c.destroyed.CompareAndSwap(false, true) {
		return
	}
	for _, e := range c.pending.drainAll() {
		if e.timer != nil {
			e.timer.Stop()
		}
		c.callbacks.releaseCallScoped(e.callbackIDs)
		deliver(e.resultCh, pendingResult{err: &RPCDestroyedError{}})
	}

	c.streamMu.Lock()
	for _, cs := range c.consumerStreams {
		cs.closeDestroyed(&RPCDestroyedError{})
	}
	c.consumerStreams = make(map[string]*ConsumerStream)
	for _, ob := range c.outboundStreams {
		ob.cancelled.Store(true)
	}
	c.outboundStreams = make(map[string]*outboundStream)
	c.streamMu.Unlock()

	c.callbacks.clear()
	_ = c.io.Close()
}

// Destroyed reports whether Destroy has run.
func (c *Channel) Destroyed() bool {
	return c.destroyed.Load()
}
