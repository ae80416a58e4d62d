package core

import (
	"net"
	"sync"

	ncerr "bidmaster/internal/errors"
	"bidmaster/util"
)

// Listener owns the auctioneer's listening socket.  Each accepted
// connection is handed to the serve function on its own goroutine.
// A Listener can be opened again after Close, which is how one
// process runs several rounds.
type Listener struct {
	Address string // ":port" or "host:port"
	Logger  *util.Logger

	mu      sync.Mutex
	ln      net.Listener
	stopped chan struct{}
}

// Open binds Address and starts the accept loop.  Bind failures are
// returned as a NetworkError with Op "listen".
func (l *Listener) Open(serve func(net.Conn)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln != nil {
		return nil
	}

	ln, err := net.Listen("tcp", l.Address)
	if err != nil {
		return ncerr.Wrap("listen", l.Address, err)
	}
	l.ln = ln
	l.stopped = make(chan struct{})

	l.Logger.Info("listening on %s", ln.Addr())
	go l.acceptLoop(ln, l.stopped, serve)
	return nil
}

// Close stops accepting.  Connections already handed out are not
// affected.  Closing a closed Listener is a no-op.
func (l *Listener) Close() error {
	l.mu.Lock()
	ln, stopped := l.ln, l.stopped
	l.ln = nil
	l.mu.Unlock()

	if ln == nil {
		return nil
	}
	err := ln.Close()
	<-stopped
	if util.IsClosedConn(err) {
		return nil
	}
	return err
}

// Running reports whether the accept loop is live.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ln != nil
}

// Addr returns the bound address, or nil when not running.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

func (l *Listener) acceptLoop(ln net.Listener, stopped chan struct{}, serve func(net.Conn)) {
	defer close(stopped)

	for {
		conn, err := ln.Accept()
		if err != nil {
			l.mu.Lock()
			closing := l.ln != ln
			if !closing {
				// The socket failed on its own; stop reporting as running.
				l.ln = nil
			}
			l.mu.Unlock()

			if closing || util.IsClosedConn(err) {
				l.Logger.Verbose("listener on %s closed", ln.Addr())
			} else {
				l.Logger.Error("accept: %v", err)
				ln.Close()
			}
			return
		}

		l.Logger.Verbose("connection from %s", conn.RemoteAddr())
		go serve(conn)
	}
}
