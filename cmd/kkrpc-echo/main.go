// Command kkrpc-echo is a small, self-contained harness exercising kkrpc's
// request/response, server-streamed, and callback protocols over an
// in-memory pipe: one process plays both sides. It is a manual exercising
// tool, not part of the module's test surface (SPEC_FULL.md §A).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kunkunsh/kkrpc-go/kkrpc"
	"github.com/kunkunsh/kkrpc-go/transport"
)

var countdownFrom = flag.Int("n", 5, "countdown starting value for the stream demo")

func main() {
	flag.Parse()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	serverIO, clientIO := transport.NewInMemoryPipe()
	serverIO = transport.NewLoggingIO(serverIO, log.With("side", "server"))

	server := kkrpc.NewChannel(serverIO, kkrpc.WithLogger(log.With("side", "server")), kkrpc.WithExpose(kkrpc.Tree{
		"echo": kkrpc.UnaryHandler(func(ctx context.Context, args []any) (any, error) {
			if len(args) == 0 {
				return nil, fmt.Errorf("echo: expected one argument")
			}
			return args[0], nil
		}),
		"countdown": kkrpc.StreamHandler(func(ctx context.Context, args []any) (kkrpc.StreamProducer, error) {
			n := *countdownFrom
			return kkrpc.NewFuncStream(func(ctx context.Context) (any, bool, error) {
				if n < 0 {
					return nil, false, nil
				}
				v := n
				n--
				return v, true, nil
			}), nil
		}),
		"notify": kkrpc.UnaryHandler(func(ctx context.Context, args []any) (any, error) {
			if len(args) < 2 {
				return nil, fmt.Errorf("notify: expected (message, callback)")
			}
			cb, ok := args[1].(*kkrpc.RemoteCallback)
			if !ok {
				return nil, fmt.Errorf("notify: second argument is not a callback")
			}
			go func() {
				_ = cb.Invoke(context.Background(), args[0])
			}()
			return true, nil
		}),
	}))
	defer server.Destroy()

	client := kkrpc.NewChannel(clientIO, kkrpc.WithLogger(log.With("side", "client")))
	defer client.Destroy()

	ctx := context.Background()

	result, err := client.Call(ctx, "echo", "hello kkrpc")
	if err != nil {
		fmt.Fprintln(os.Stderr, "echo failed:", err)
		os.Exit(1)
	}
	fmt.Println("echo:", result)

	streamVal, err := client.Call(ctx, "countdown")
	if err != nil {
		fmt.Fprintln(os.Stderr, "countdown failed:", err)
		os.Exit(1)
	}
	stream, ok := streamVal.(*kkrpc.ConsumerStream)
	if !ok {
		fmt.Fprintln(os.Stderr, "countdown: expected a stream result")
		os.Exit(1)
	}
	for v, err := range stream.All(ctx) {
		if err != nil {
			fmt.Fprintln(os.Stderr, "countdown stream error:", err)
			break
		}
		fmt.Println("countdown:", v)
	}

	done := make(chan struct{})
	// The server invokes the callback after "notify" has returned, so it must
	// outlive the call: a call-scoped callback is released on the response.
	cb := kkrpc.NewLongLivedCallback(func(args []any) {
		fmt.Println("notify callback:", args)
		close(done)
	})
	if _, err := client.Call(ctx, "notify", "deferred greeting", cb); err != nil {
		fmt.Fprintln(os.Stderr, "notify failed:", err)
		os.Exit(1)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		fmt.Fprintln(os.Stderr, "notify: timed out waiting for callback")
	}
}
