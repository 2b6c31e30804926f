package transport

import "github.com/kunkunsh/kkrpc-go/internal/util"

// isLoopback reports whether addr (host, or host:port) refers to the
// loopback interface; used by the WebSocket server transport to warn when
// it serves a request whose Host is not a loopback address over a
// connection without TLS (ambient defensive logging, not a protocol
// requirement).
func isLoopback(addr string) bool {
	return util.IsLoopback(addr)
}
