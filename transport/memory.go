package transport

import (
	"context"
	"errors"
	"sync"
)

// memoryIO is an in-process IO backed by a pair of buffered Go channels.
// It is the Go analogue of the teacher's mcp.NewInMemoryTransports, used
// throughout this module's own test suite to exercise a Channel pair
// without a real OS transport.
type memoryIO struct {
	out chan Frame
	in  chan Frame

	closeOnce sync.Once
	closed    chan struct{}
}

// NewInMemoryPipe returns two linked IOs: frames written to one are read
// from the other.
func NewInMemoryPipe() (a, b IO) {
	ab := make(chan Frame, 64)
	ba := make(chan Frame, 64)
	ca := make(chan struct{})
	cb := make(chan struct{})
	return &memoryIO{out: ab, in: ba, closed: ca}, &memoryIO{out: ba, in: ab, closed: cb}
}

func (m *memoryIO) Read(ctx context.Context) (Frame, error) {
	select {
	case f, ok := <-m.in:
		if !ok {
			return Frame{}, errors.New("transport: memory pipe closed")
		}
		return f, nil
	case <-m.closed:
		return Frame{}, errors.New("transport: memory pipe closed")
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (m *memoryIO) Write(ctx context.Context, f Frame) error {
	select {
	case m.out <- f:
		return nil
	case <-m.closed:
		return errors.New("transport: memory pipe closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *memoryIO) Capabilities() Capabilities {
	return Capabilities{StructuredClone: true, Transfer: true}
}

func (m *memoryIO) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}
