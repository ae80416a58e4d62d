package util

import (
	"errors"
	"io"
	"net"
)

// IsClosedConn reports whether err is the expected result of a peer
// hanging up or of us closing the connection ourselves.  Such errors
// end a read or accept loop silently; anything else is worth a log line.
func IsClosedConn(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
