// Package session represents one connected bidder inside the
// auctioneer: a line-framed connection, a unique ID, the name the
// bidder declared, and an ordered outbound queue drained by a
// dedicated writer goroutine.  The queue is unbounded; a peer is only
// dropped when a write to it fails.
//
// The session knows nothing about auction rules.  Inbound lines are
// handed to a Handler; the auction coordinator is the only production
// implementation.
package session

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	ncerr "bidmaster/internal/errors"
	"bidmaster/internal/metrics"
	"bidmaster/internal/transport"
	"bidmaster/util"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultBacklog      = 64
	DefaultFlushTimeout = 2 * time.Second
)

// Handler receives a session's inbound traffic.  HandleLine is called
// sequentially from the session's read loop; SessionClosed is called
// exactly once when the loop ends.
type Handler interface {
	HandleLine(s *Session, line string)
	SessionClosed(s *Session)
}

// Options tunes a Session.
type Options struct {
	Backlog      int           // queued lines at which a slow peer is reported
	FlushTimeout time.Duration // bound on flushing queued lines during Close
	Logger       *util.Logger
	Metrics      *metrics.Collector
}

// Session is the auctioneer-side handle for one bidder connection.
type Session struct {
	id      string
	lc      *transport.LineConn
	log     *util.Logger
	metrics *metrics.Collector

	qmu     sync.Mutex
	ready   *sync.Cond
	outbox  []string
	closing bool
	backlog int

	done  chan struct{}
	alive atomic.Bool

	flushTimeout time.Duration
	closeOnce    sync.Once

	mu   sync.RWMutex
	name string
}

// New wraps conn and starts the session's writer.  The session owns
// conn from here on; Close releases it.
func New(conn net.Conn, opts Options) *Session {
	if opts.Backlog <= 0 {
		opts.Backlog = DefaultBacklog
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = DefaultFlushTimeout
	}
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(int(util.LogQuiet))
	}

	id := uuid.NewString()
	s := &Session{
		id:           id,
		lc:           transport.NewLineConn(conn),
		log:          opts.Logger.With("session", id[:8]),
		metrics:      opts.Metrics,
		backlog:      opts.Backlog,
		done:         make(chan struct{}),
		flushTimeout: opts.FlushTimeout,
	}
	s.ready = sync.NewCond(&s.qmu)
	s.alive.Store(true)
	go s.writeLoop()
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() net.Addr { return s.lc.RemoteAddr() }

// Alive reports whether the session can still deliver lines.
func (s *Session) Alive() bool { return s.alive.Load() }

// Logger returns the session-scoped logger.
func (s *Session) Logger() *util.Logger { return s.log }

// Name returns the declared bidder name, or "" before JOIN.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SetName records the bidder's declared name.  A name can be set only
// once; later calls return ErrAlreadyJoined.
func (s *Session) SetName(name string) error {
	if name == "" {
		return ncerr.ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.name != "" {
		return ncerr.ErrAlreadyJoined
	}
	s.name = name
	s.log = s.log.With("name", name)
	return nil
}

// Send queues line for delivery without blocking.  A closed session
// returns ErrSessionClosed.  A peer that falls Backlog lines behind is
// reported but kept; only a failed write drops it.
func (s *Session) Send(line string) error {
	if !s.alive.Load() {
		return ncerr.ErrSessionClosed
	}

	s.qmu.Lock()
	if s.closing {
		s.qmu.Unlock()
		return ncerr.ErrSessionClosed
	}
	s.outbox = append(s.outbox, line)
	queued := len(s.outbox)
	s.ready.Signal()
	s.qmu.Unlock()

	if queued == s.backlog {
		s.logger().Warn("peer is %d lines behind", queued)
	}
	return nil
}

// Serve runs the read loop until the connection ends, passing every
// line to h.  It then reports the closure to h and releases the
// session.  Serve must be called at most once.
func (s *Session) Serve(h Handler) {
	defer s.Close()
	defer h.SessionClosed(s)

	for {
		line, err := s.lc.ReadLine()
		if err != nil {
			if !util.IsClosedConn(err) {
				s.logger().Verbose("read: %v", err)
			}
			return
		}
		h.HandleLine(s, line)
	}
}

// Close flushes queued lines, bounded by the flush timeout, and closes
// the connection.  It is safe to call from any goroutine and more than
// once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.alive.Store(false)
		s.qmu.Lock()
		s.closing = true
		s.ready.Broadcast()
		s.qmu.Unlock()
		s.lc.SetWriteDeadline(time.Now().Add(s.flushTimeout)) //nolint:errcheck
		<-s.done
	})
	return nil
}

func (s *Session) logger() *util.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log
}

// writeLoop delivers queued lines in order.  Once closing it drains
// what is already queued and closes the connection.
func (s *Session) writeLoop() {
	defer close(s.done)
	defer s.lc.Close()

	for {
		s.qmu.Lock()
		for len(s.outbox) == 0 && !s.closing {
			s.ready.Wait()
		}
		batch := s.outbox
		s.outbox = nil
		s.qmu.Unlock()

		if len(batch) == 0 {
			return
		}
		for i, line := range batch {
			if !s.write(line) {
				s.discard(len(batch) - i)
				return
			}
		}
	}
}

func (s *Session) write(line string) bool {
	if err := s.lc.WriteLine(line); err != nil {
		if !util.IsClosedConn(err) {
			s.logger().Verbose("write: %v", err)
		}
		return false
	}
	return true
}

// discard stops the session after a failed write.  The n lines of the
// current batch that never went out and anything still queued are
// counted as dropped.
func (s *Session) discard(n int) {
	s.alive.Store(false)
	s.qmu.Lock()
	s.closing = true
	n += len(s.outbox)
	s.outbox = nil
	s.qmu.Unlock()

	for i := 0; i < n; i++ {
		s.metrics.LineDropped()
	}
}
