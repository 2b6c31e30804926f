package transport

import (
	"context"
	"log/slog"
)

// loggingIO wraps an IO, logging every frame read and written. Grounded on
// the teacher's mcp.NewLoggingTransport(transport, io.Writer); here it
// takes a *slog.Logger directly to match this module's structured-logging
// convention (SPEC_FULL.md §B).
type loggingIO struct {
	IO
	log *slog.Logger
}

// NewLoggingIO decorates io, logging each frame at debug level.
func NewLoggingIO(io IO, log *slog.Logger) IO {
	return &loggingIO{IO: io, log: log}
}

func (l *loggingIO) Read(ctx context.Context) (Frame, error) {
	f, err := l.IO.Read(ctx)
	if err != nil {
		l.log.Debug("kkrpc transport read failed", "error", err)
		return f, err
	}
	l.log.Debug("kkrpc transport read", "bytes", len(f.Data), "handles", len(f.Handles))
	return f, nil
}

func (l *loggingIO) Write(ctx context.Context, f Frame) error {
	l.log.Debug("kkrpc transport write", "bytes", len(f.Data), "handles", len(f.Handles))
	if err := l.IO.Write(ctx, f); err != nil {
		l.log.Debug("kkrpc transport write failed", "error", err)
		return err
	}
	return nil
}
