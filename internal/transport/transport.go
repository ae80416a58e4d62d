// Package transport provides the connection layer: dialers that
// establish outbound TCP connections (directly or through an SSH
// gateway) and LineConn, which frames a stream as newline-delimited
// UTF-8 text.  Nothing here knows about auctions.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.  Implementations include
// a plain TCP dialer and an SSH dialer that routes traffic through a
// gateway host.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}
