package kkrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kunkunsh/kkrpc-go/transport"
)

func newPair(t *testing.T, serverTree Tree, opts ...Option) (*Channel, *Channel) {
	t.Helper()
	sIO, cIO := transport.NewInMemoryPipe()
	server := NewChannel(sIO, append([]Option{WithExpose(serverTree)}, opts...)...)
	client := NewChannel(cIO)
	t.Cleanup(func() {
		client.Destroy()
		server.Destroy()
	})
	return server, client
}

// S1: basic call, and the pending table is empty once it resolves.
func TestCall_Basic(t *testing.T) {
	server, client := newPair(t, Tree{
		"add": UnaryHandler(func(ctx context.Context, args []any) (any, error) {
			a, _ := args[0].(float64)
			b, _ := args[1].(float64)
			return a + b, nil
		}),
	})

	got, err := client.Call(context.Background(), "add", 2.0, 3.0)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if diff := cmp.Diff(5.0, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if n := client.pending.len(); n != 0 {
		t.Errorf("pending table not empty after resolution: %d entries", n)
	}
	_ = server
}

// S2: nested path, callback fires, and the call itself still returns the
// sum.
func TestCall_NestedPathWithCallback(t *testing.T) {
	_, client := newPair(t, Tree{
		"math": Tree{
			"grade1": Tree{
				"add": UnaryHandler(func(ctx context.Context, args []any) (any, error) {
					a, _ := args[0].(float64)
					b, _ := args[1].(float64)
					if len(args) > 2 {
						if cb, ok := args[2].(*RemoteCallback); ok {
							_ = cb.Invoke(ctx, a+b)
						}
					}
					return a + b, nil
				}),
			},
		},
	})

	var callbackValue any
	done := make(chan struct{})
	cb := CallbackFunc(func(args []any) {
		if len(args) > 0 {
			callbackValue = args[0]
		}
		close(done)
	})

	got, err := client.Call(context.Background(), "math.grade1.add", 2.0, 3.0, cb)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
	if got != 5.0 || callbackValue != 5.0 {
		t.Errorf("got result=%v callbackValue=%v, want both 5.0", got, callbackValue)
	}
}

// S3: countdown stream, followed by a regular call on the same channel.
func TestCall_CountdownStreamThenEcho(t *testing.T) {
	_, client := newPair(t, Tree{
		"countdown": StreamHandler(func(ctx context.Context, args []any) (StreamProducer, error) {
			from := int(args[0].(float64))
			items := make([]any, 0, from+1)
			for i := from; i >= 0; i-- {
				items = append(items, float64(i))
			}
			return NewSliceStream(items), nil
		}),
		"echo": UnaryHandler(func(ctx context.Context, args []any) (any, error) {
			return args[0], nil
		}),
	})

	ctx := context.Background()
	v, err := client.Call(ctx, "countdown", 3.0)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	stream, ok := v.(*ConsumerStream)
	if !ok {
		t.Fatalf("expected *ConsumerStream, got %T", v)
	}

	var got []any
	for val, err := range stream.All(ctx) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		got = append(got, val)
	}
	want := []any{3.0, 2.0, 1.0, 0.0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("countdown mismatch (-want +got):\n%s", diff)
	}

	echoed, err := client.Call(ctx, "echo", "ok")
	if err != nil {
		t.Fatalf("echo after stream: %v", err)
	}
	if echoed != "ok" {
		t.Errorf("echo after stream = %v, want %q", echoed, "ok")
	}
}

// S4: the consumer cancels a long-running stream partway through, and the
// channel continues to process subsequent calls.
func TestConsumerStream_CancelThenEcho(t *testing.T) {
	produced := make(chan struct{}, 100)
	_, client := newPair(t, Tree{
		"infinite": StreamHandler(func(ctx context.Context, args []any) (StreamProducer, error) {
			n := 0
			return NewFuncStream(func(ctx context.Context) (any, bool, error) {
				select {
				case <-ctx.Done():
					return nil, false, ctx.Err()
				default:
				}
				v := n
				n++
				select {
				case produced <- struct{}{}:
				default:
				}
				return v, true, nil
			}), nil
		}),
		"echo": UnaryHandler(func(ctx context.Context, args []any) (any, error) {
			return args[0], nil
		}),
	})

	ctx := context.Background()
	v, err := client.Call(ctx, "infinite")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	stream := v.(*ConsumerStream)

	count := 0
	for range stream.All(ctx) {
		count++
		if count >= 5 {
			break
		}
	}

	echoed, err := client.Call(ctx, "echo", "ok")
	if err != nil {
		t.Fatalf("echo after cancel: %v", err)
	}
	if echoed != "ok" {
		t.Errorf("echo after cancel = %v, want %q", echoed, "ok")
	}
}

type fakeValidator struct {
	check func(data json.RawMessage) error
}

func (f fakeValidator) Validate(data json.RawMessage) error { return f.check(data) }

// S5: input validation rejects a call before the handler ever runs.
func TestRequest_InputValidationFailure(t *testing.T) {
	handlerCalled := false
	validators := ValidatorTree{
		"add": {
			Input: fakeValidator{check: func(data json.RawMessage) error {
				var args []any
				if err := json.Unmarshal(data, &args); err != nil {
					return err
				}
				for _, a := range args {
					if _, ok := a.(float64); !ok {
						return fmt.Errorf("expected number, got %T", a)
					}
				}
				return nil
			}},
		},
	}
	_, client := newPair(t, Tree{
		"add": UnaryHandler(func(ctx context.Context, args []any) (any, error) {
			handlerCalled = true
			return nil, nil
		}),
	}, WithValidators(validators))

	_, err := client.Call(context.Background(), "add", "x", "y")
	if err == nil {
		t.Fatal("expected a validation error, got nil")
	}
	// The handler runs on the server side; the error a caller observes is
	// the RemoteError reconstructed from the peer's error record, not the
	// local *RPCValidationError type itself (spec.md §7).
	var rerr *RemoteError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RemoteError, got %T: %v", err, err)
	}
	if rerr.RPCName() != "RPCValidationError" {
		t.Errorf("RPCName = %q, want %q", rerr.RPCName(), "RPCValidationError")
	}
	props := rerr.Properties()
	if props["phase"] != "input" || props["method"] != "add" {
		t.Errorf("unexpected validation error properties: %+v", props)
	}
	if handlerCalled {
		t.Error("handler ran despite failing input validation")
	}
}

// S6: a call against a slow handler times out, and the pending table no
// longer carries the entry; the peer's late response is ignored.
func TestCall_Timeout(t *testing.T) {
	_, client := newPair(t, Tree{
		"slow": UnaryHandler(func(ctx context.Context, args []any) (any, error) {
			ms := time.Duration(args[0].(float64)) * time.Millisecond
			time.Sleep(ms)
			return "done", nil
		}),
	}, WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := client.Call(context.Background(), "slow", 500.0)
	elapsed := time.Since(start)

	var terr *RPCTimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *RPCTimeoutError, got %T: %v", err, err)
	}
	if terr.Method != "slow" || terr.TimeoutMs != 50 {
		t.Errorf("unexpected timeout error shape: %+v", terr)
	}
	if elapsed > 400*time.Millisecond {
		t.Errorf("Call blocked for %v, want close to the 50ms timeout", elapsed)
	}
	time.Sleep(600 * time.Millisecond) // let the late response arrive and be ignored
	if n := client.pending.len(); n != 0 {
		t.Errorf("pending table not empty after timeout: %d entries", n)
	}
}

// S7: a transfer-wrapped value round-trips with its handle lengths intact,
// and the sender's own buffer is neutered (zeroed) once the call returns,
// since by then the peer has its own independent copy of the content.
func TestCall_TransferRoundTrip(t *testing.T) {
	_, client := newPair(t, Tree{
		"bufLen": UnaryHandler(func(ctx context.Context, args []any) (any, error) {
			b, ok := args[0].([]byte)
			if !ok {
				return nil, fmt.Errorf("expected []byte, got %T", args[0])
			}
			return float64(len(b)), nil
		}),
	})

	buf := make([]byte, 128)
	for i := range buf {
		buf[i] = 0xAB
	}
	got, err := client.Call(context.Background(), "bufLen", WithTransfer(buf, buf))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != 128.0 {
		t.Errorf("bufLen = %v, want 128", got)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("sender buffer not neutered after transfer: byte %d = %#x, want 0", i, b)
		}
	}
}

// S7b: the peer observes the transferred content correctly even though the
// sender's own buffer is neutered immediately afterward — the wire carries
// an independent snapshot, not a live alias of the sender's slice.
func TestCall_TransferPreservesReceivedContent(t *testing.T) {
	var received []byte
	_, client := newPair(t, Tree{
		"capture": UnaryHandler(func(ctx context.Context, args []any) (any, error) {
			b, _ := args[0].([]byte)
			received = append([]byte(nil), b...)
			return nil, nil
		}),
	})

	buf := []byte("the quick brown fox")
	if _, err := client.Call(context.Background(), "capture", WithTransfer(buf, buf)); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(received) != "the quick brown fox" {
		t.Errorf("peer received %q, want %q", received, "the quick brown fox")
	}
}

// Construct dispatch skips the interceptor chain entirely: a middleware
// that rejects every request must not see a construct call (spec.md
// §4.4.1, "not get/set/construct/callback").
func TestConstruct_SkipsMiddleware(t *testing.T) {
	alwaysReject := Middleware(func(next MethodHandler) MethodHandler {
		return func(ctx context.Context, r *Request) (any, error) {
			return nil, errors.New("rejected by middleware")
		}
	})
	_, client := newPair(t, Tree{
		"widget": UnaryHandler(func(ctx context.Context, args []any) (any, error) {
			return "built", nil
		}),
	}, WithMiddleware(alwaysReject))

	if _, err := client.Call(context.Background(), "widget"); err == nil {
		t.Fatal("expected request to be rejected by middleware, got nil error")
	}

	got, err := client.Construct(context.Background(), "widget")
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if got != "built" {
		t.Errorf("Construct result = %v, want %q", got, "built")
	}
}

// S8: destroying the channel mid-flight rejects the pending call and leaves
// the pending table empty.
func TestDestroy_MidFlight(t *testing.T) {
	released := make(chan struct{})
	server, client := newPair(t, Tree{
		"slow": UnaryHandler(func(ctx context.Context, args []any) (any, error) {
			select {
			case <-time.After(2 * time.Second):
			case <-released:
			}
			return "done", nil
		}),
	})

	ctx := context.Background()
	errCh := make(chan error, 1)
	go func() {
		_, err := client.Call(ctx, "slow", 2000.0)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	client.Destroy()
	close(released)

	select {
	case err := <-errCh:
		var derr *RPCDestroyedError
		if !errors.As(err, &derr) {
			t.Fatalf("expected *RPCDestroyedError, got %T: %v", err, err)
		}
	case <-time.After(time.Second):
		t.Fatal("Call never returned after Destroy")
	}
	if n := client.pending.len(); n != 0 {
		t.Errorf("pending table not empty after destroy: %d entries", n)
	}
	_ = server
}
