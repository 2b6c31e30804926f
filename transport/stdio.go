package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// stdioIO is a newline-delimited IO over arbitrary io.Reader/io.Writer
// streams, grounded on the teacher's mcp.NewStdioTransport usage contract
// (the transport's own source was not retrieved into this pack, so the
// framing here follows spec.md §6.1's "each read yields exactly one
// logical message" directly): each frame is one JSON line.
type stdioIO struct {
	r  *bufio.Reader
	w  io.Writer
	mu sync.Mutex
	c  io.Closer
}

// NewStdioIO builds a line-delimited IO over r/w. No transfer capability:
// stdio carries bytes only, never host handles.
func NewStdioIO(r io.Reader, w io.Writer) IO {
	closer, _ := r.(io.Closer)
	return &stdioIO{r: bufio.NewReader(r), w: w, c: closer}
}

func (s *stdioIO) Read(ctx context.Context) (Frame, error) {
	type result struct {
		line []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := s.r.ReadBytes('\n')
		ch <- result{line, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil && len(r.line) == 0 {
			return Frame{}, r.err
		}
		return Frame{Data: trimNewline(r.line)}, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func (s *stdioIO) Write(ctx context.Context, f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(f.Data); err != nil {
		return fmt.Errorf("transport: stdio write: %w", err)
	}
	_, err := s.w.Write([]byte{'\n'})
	return err
}

func (s *stdioIO) Capabilities() Capabilities {
	return Capabilities{}
}

func (s *stdioIO) Close() error {
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}
