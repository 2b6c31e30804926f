package transport

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWebSocketTransport_RoundTripPlainFrame(t *testing.T) {
	accepted := make(chan IO, 1)
	server := NewWebSocketServerTransport(func(io IO) { accepted <- io }, nil)
	srv := httptest.NewServer(server)
	defer srv.Close()

	client := &WebSocketClientTransport{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}
	clientIO, err := client.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer clientIO.Close()

	var serverIO IO
	select {
	case serverIO = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted a connection")
	}
	defer serverIO.Close()

	ctx := context.Background()
	if err := clientIO.Write(ctx, Frame{Data: []byte(`{"id":"1"}`)}); err != nil {
		t.Fatalf("client Write: %v", err)
	}
	got, err := serverIO.Read(ctx)
	if err != nil {
		t.Fatalf("server Read: %v", err)
	}
	if string(got.Data) != `{"id":"1"}` {
		t.Errorf("got %q", got.Data)
	}
}

func TestWebSocketTransport_RoundTripWithTransferHandles(t *testing.T) {
	accepted := make(chan IO, 1)
	server := NewWebSocketServerTransport(func(io IO) { accepted <- io }, nil)
	srv := httptest.NewServer(server)
	defer srv.Close()

	client := &WebSocketClientTransport{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}
	clientIO, err := client.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer clientIO.Close()

	var serverIO IO
	select {
	case serverIO = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted a connection")
	}
	defer serverIO.Close()

	ctx := context.Background()
	handle := []byte("binary-payload")
	if err := clientIO.Write(ctx, Frame{Data: []byte(`{"id":"2"}`), Handles: []any{handle}}); err != nil {
		t.Fatalf("client Write: %v", err)
	}
	got, err := serverIO.Read(ctx)
	if err != nil {
		t.Fatalf("server Read: %v", err)
	}
	if string(got.Data) != `{"id":"2"}` {
		t.Errorf("data = %q", got.Data)
	}
	if len(got.Handles) != 1 || string(got.Handles[0].([]byte)) != "binary-payload" {
		t.Errorf("handles = %#v", got.Handles)
	}
}

func TestWebSocketTransport_Capabilities(t *testing.T) {
	accepted := make(chan IO, 1)
	server := NewWebSocketServerTransport(func(io IO) { accepted <- io }, nil)
	srv := httptest.NewServer(server)
	defer srv.Close()

	client := &WebSocketClientTransport{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}
	clientIO, err := client.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer clientIO.Close()

	if !clientIO.Capabilities().Transfer {
		t.Error("expected websocket IO to advertise transfer capability")
	}
}
