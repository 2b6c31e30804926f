package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketClientTransport connects to a kkrpc WebSocket server and
// produces an IO for the resulting connection, grounded on the teacher's
// mcp.WebSocketClientTransport (same gorilla/websocket dependency and
// dial/subprotocol shape, renamed from the "mcp" subprotocol to "kkrpc").
type WebSocketClientTransport struct {
	URL    string
	Dialer *websocket.Dialer
	Header http.Header
}

// Connect dials the configured URL and returns an IO over the connection.
func (t *WebSocketClientTransport) Connect(ctx context.Context) (IO, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	dialer.Subprotocols = []string{"kkrpc"}

	conn, resp, err := dialer.DialContext(ctx, t.URL, t.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("transport: websocket connect: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("transport: websocket connect: %w", err)
	}
	return newWebSocketIO(conn), nil
}

// WebSocketServerTransport upgrades incoming HTTP requests to WebSocket
// connections and hands each one to accept as an IO.
type WebSocketServerTransport struct {
	upgrader websocket.Upgrader
	accept   func(IO)
	log      *slog.Logger
}

// NewWebSocketServerTransport builds a server transport; accept is called
// once per accepted connection with the resulting IO.
func NewWebSocketServerTransport(accept func(IO), log *slog.Logger) *WebSocketServerTransport {
	if log == nil {
		log = slog.Default()
	}
	return &WebSocketServerTransport{
		upgrader: websocket.Upgrader{
			Subprotocols: []string{"kkrpc"},
			CheckOrigin:  func(r *http.Request) bool { return true },
		},
		accept: accept,
		log:    log,
	}
}

// ServeHTTP upgrades the request and hands the resulting IO to accept.
func (t *WebSocketServerTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.Host) && r.TLS == nil {
		t.log.Warn("kkrpc websocket server accepting non-loopback connection without TLS", "host", r.Host)
	}
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, fmt.Sprintf("websocket upgrade failed: %v", err), http.StatusBadRequest)
		return
	}
	t.accept(newWebSocketIO(conn))
}

// websocketIO carries frames as JSON text messages. A frame with transfer
// handles is sent as a text header carrying the handle count, then one
// binary message per handle, then the frame's JSON text, so that
// Capabilities().Transfer can honestly report true: transport.Frame.Handles
// survive the round trip as real binary payloads rather than being
// inlined into the JSON text.
type websocketIO struct {
	conn      *websocket.Conn
	sessionID string
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newWebSocketIO(conn *websocket.Conn) *websocketIO {
	return &websocketIO{conn: conn, sessionID: uuid.NewString()}
}

func (c *websocketIO) SessionID() string { return c.sessionID }

func (c *websocketIO) Read(ctx context.Context) (Frame, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.conn.Close()
		case <-done:
		}
	}()

	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("transport: websocket read: %w", err)
	}
	if messageType != websocket.TextMessage {
		return Frame{}, fmt.Errorf("transport: unexpected websocket message type %d", messageType)
	}

	var header handleCountHeader
	handleCount := 0
	if json.Unmarshal(data, &header) == nil && header.HandleCount > 0 {
		handleCount = header.HandleCount
		// The header was its own frame; the actual payload follows the
		// handle frames.
		handles := make([]any, 0, handleCount)
		for range handleCount {
			mt, hdata, err := c.conn.ReadMessage()
			if err != nil {
				return Frame{}, fmt.Errorf("transport: websocket handle read: %w", err)
			}
			if mt != websocket.BinaryMessage {
				return Frame{}, fmt.Errorf("transport: expected binary handle frame, got type %d", mt)
			}
			handles = append(handles, hdata)
		}
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return Frame{}, fmt.Errorf("transport: websocket payload read: %w", err)
		}
		return Frame{Data: payload, Handles: handles}, nil
	}
	return Frame{Data: data}, nil
}

type handleCountHeader struct {
	HandleCount int `json:"__kkrpc_handle_count"`
}

func (c *websocketIO) Write(ctx context.Context, f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}

	if len(f.Handles) > 0 {
		header, err := json.Marshal(handleCountHeader{HandleCount: len(f.Handles)})
		if err != nil {
			return fmt.Errorf("transport: websocket handle header: %w", err)
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, header); err != nil {
			return fmt.Errorf("transport: websocket header write: %w", err)
		}
		for _, h := range f.Handles {
			b, ok := h.([]byte)
			if !ok {
				return fmt.Errorf("transport: websocket transfer handle must be []byte, got %T", h)
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
				return fmt.Errorf("transport: websocket handle write: %w", err)
			}
		}
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, f.Data); err != nil {
		return fmt.Errorf("transport: websocket write: %w", err)
	}
	return nil
}

func (c *websocketIO) Capabilities() Capabilities {
	return Capabilities{StructuredClone: true, Transfer: true}
}

func (c *websocketIO) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.conn.Close() })
	return err
}
