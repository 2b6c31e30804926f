package kkrpc

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
)

// StreamProducer yields a finite, non-restartable sequence of values
// on demand (spec.md glossary, "Lazy sequence"). Next returns ok=false with
// a nil error when the sequence is exhausted.
type StreamProducer interface {
	Next(ctx context.Context) (value any, ok bool, err error)
}

// SliceStream adapts a fixed slice of values into a StreamProducer; used by
// handlers that already have the whole sequence in hand (e.g. the
// countdown scenario, spec.md S3).
type SliceStream struct {
	items []any
	i     int
}

// NewSliceStream builds a StreamProducer over items.
func NewSliceStream(items []any) *SliceStream {
	return &SliceStream{items: items}
}

func (s *SliceStream) Next(ctx context.Context) (any, bool, error) {
	if s.i >= len(s.items) {
		return nil, false, nil
	}
	v := s.items[s.i]
	s.i++
	return v, true, nil
}

// FuncStream adapts a pull function into a StreamProducer, for handlers
// that compute each value on demand (spec.md S4, "infinite" generators that
// must observe cancellation between yields).
type FuncStream struct {
	next func(ctx context.Context) (any, bool, error)
}

// NewFuncStream builds a StreamProducer from a pull function.
func NewFuncStream(next func(ctx context.Context) (any, bool, error)) *FuncStream {
	return &FuncStream{next: next}
}

func (s *FuncStream) Next(ctx context.Context) (any, bool, error) {
	return s.next(ctx)
}

// outboundStream is the producer-side bookkeeping entry for an active
// server-streamed sequence (spec.md, "Active Outbound Stream").
type outboundStream struct {
	cancelled atomic.Bool
}

// streamState is the consumer-side state machine for a pending id upgraded
// to a stream (spec.md "Consumer stream" state machine).
type streamState int

const (
	streamOpen streamState = iota
	streamClosedEnd
	streamClosedError
	streamCancelledLocal
	streamDestroyed
)

// ConsumerStream is the caller-facing handle for a server-streamed
// sequence: a lazy, finite, non-restartable iterator over chunks produced
// by the peer (spec.md §3, "Pending Stream (consumer side)").
type ConsumerStream struct {
	id string
	ch *Channel

	mu       sync.Mutex
	state    streamState
	queue    []any
	waiterCh chan struct{}
	err      error
}

func newConsumerStream(id string, ch *Channel) *ConsumerStream {
	return &ConsumerStream{id: id, ch: ch, state: streamOpen}
}

// enqueue appends a chunk for a stream in the open state; chunks arriving
// in any closed state are dropped (spec.md "Consumer stream" states).
func (s *ConsumerStream) enqueue(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != streamOpen {
		return
	}
	s.queue = append(s.queue, v)
	s.wake()
}

func (s *ConsumerStream) closeEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != streamOpen {
		return
	}
	s.state = streamClosedEnd
	s.wake()
}

func (s *ConsumerStream) closeError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != streamOpen {
		return
	}
	s.state = streamClosedError
	s.err = err
	s.wake()
}

func (s *ConsumerStream) closeDestroyed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == streamClosedEnd || s.state == streamClosedError {
		return
	}
	s.state = streamDestroyed
	s.err = err
	s.wake()
}

// wake must be called with s.mu held.
func (s *ConsumerStream) wake() {
	if s.waiterCh != nil {
		close(s.waiterCh)
		s.waiterCh = nil
	}
}

// Next blocks until the next chunk is available, the stream terminates
// (ok=false, err=nil), or it terminates with an error.
func (s *ConsumerStream) Next(ctx context.Context) (any, bool, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			v := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return v, true, nil
		}
		switch s.state {
		case streamClosedEnd:
			s.mu.Unlock()
			return nil, false, nil
		case streamClosedError, streamDestroyed:
			err := s.err
			s.mu.Unlock()
			return nil, false, err
		case streamCancelledLocal:
			s.mu.Unlock()
			return nil, false, nil
		}
		if s.waiterCh == nil {
			s.waiterCh = make(chan struct{})
		}
		wait := s.waiterCh
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

// Cancel stops consuming the stream: it emits stream-cancel to the
// producer (best effort, no response expected) and marks the stream
// locally terminated.
func (s *ConsumerStream) Cancel(ctx context.Context) {
	s.mu.Lock()
	if s.state != streamOpen {
		s.mu.Unlock()
		return
	}
	s.state = streamCancelledLocal
	s.wake()
	s.mu.Unlock()

	s.ch.emitStreamCancel(ctx, s.id)
	s.ch.dropStream(s.id)
}

// All returns a range-over-func iterator. Breaking out of the loop before
// exhaustion cancels the stream (spec.md S4).
func (s *ConsumerStream) All(ctx context.Context) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for {
			v, ok, err := s.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				return
			}
			if !yield(v, nil) {
				s.Cancel(ctx)
				return
			}
		}
	}
}
