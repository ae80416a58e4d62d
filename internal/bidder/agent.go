// Package bidder is the participant side of an auction: it connects to
// an auctioneer, announces a name, sends bids and confirmations, and
// reports what the auctioneer broadcasts.
package bidder

import (
	"context"
	"fmt"
	"sync"

	ncerr "bidmaster/internal/errors"
	"bidmaster/internal/protocol"
	"bidmaster/internal/transport"
	"bidmaster/util"
)

// Observer receives what the agent learns from the auctioneer.  Both
// methods are called from the agent's read goroutine.
type Observer interface {
	// Notify is called with every line the auctioneer sends.
	Notify(line string)
	// FinalAvailable is called when confirming a final bid becomes
	// possible or stops being possible.
	FinalAvailable(available bool)
}

// Options configures an Agent.
type Options struct {
	Dialer   transport.Dialer // defaults to a plain TCP dialer
	Observer Observer
	Logger   *util.Logger
	NoDNS    bool // require a numeric host
}

// Agent holds at most one connection to an auctioneer.
type Agent struct {
	dialer transport.Dialer
	obs    Observer
	log    *util.Logger
	noDNS  bool

	joinMu sync.Mutex // serializes Join

	mu      sync.Mutex
	lc      *transport.LineConn
	name    string
	pending bool
	done    chan struct{}
}

// New creates a disconnected agent.
func New(opts Options) *Agent {
	if opts.Dialer == nil {
		opts.Dialer = &transport.TCPDialer{}
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(int(util.LogQuiet))
	}
	done := make(chan struct{})
	close(done)
	return &Agent{
		dialer: opts.Dialer,
		obs:    opts.Observer,
		log:    opts.Logger,
		noDNS:  opts.NoDNS,
		done:   done,
	}
}

// Join connects to host:port and announces name.  A failed connection
// is reported once and not retried.
func (a *Agent) Join(ctx context.Context, host string, port int, name string) error {
	if name == "" {
		return ncerr.ErrEmptyName
	}
	if !protocol.ValidField(name) {
		return ncerr.ErrInvalidField
	}

	a.joinMu.Lock()
	defer a.joinMu.Unlock()

	if a.Connected() {
		return ncerr.ErrAlreadyConnected
	}

	addr, err := util.ResolveAddr(host, port, a.noDNS)
	if err != nil {
		return err
	}
	conn, err := a.dialer.Dial(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	lc := transport.NewLineConn(conn)
	if err := lc.WriteLine(protocol.JoinLine(name)); err != nil {
		lc.Close()
		return ncerr.Wrap("join", addr, err)
	}

	done := make(chan struct{})
	a.mu.Lock()
	a.lc = lc
	a.name = name
	a.pending = false
	a.done = done
	a.mu.Unlock()

	a.log.Info("connected to %s as %s", addr, name)
	go a.readLoop(lc)
	return nil
}

// Bid offers amount under the joined name.  The amount is sent as
// typed; it only has to fit in a single field.
func (a *Agent) Bid(amount string) error {
	lc, name := a.current()
	if lc == nil {
		return ncerr.ErrNotConnected
	}
	if amount == "" {
		return ncerr.ErrEmptyAmount
	}
	if !protocol.ValidField(amount) {
		return ncerr.ErrInvalidField
	}
	return a.send(lc, protocol.BidLine(name, amount))
}

// ConfirmFinal answers a final request.  Local pending state is cleared
// as soon as the confirmation is sent, whether or not the auctioneer
// accepts it.
func (a *Agent) ConfirmFinal() error {
	a.mu.Lock()
	lc, name, pending := a.lc, a.name, a.pending
	a.mu.Unlock()

	if lc == nil {
		return ncerr.ErrNotConnected
	}
	if !pending {
		return ncerr.ErrNoFinalRequested
	}
	if err := a.send(lc, protocol.FinalConfirmLine(name)); err != nil {
		return err
	}

	a.mu.Lock()
	cleared := a.lc == lc && a.pending
	if cleared {
		a.pending = false
	}
	a.mu.Unlock()
	if cleared {
		a.obs.FinalAvailable(false)
	}
	return nil
}

// Disconnect drops the connection and forgets the name and any pending
// final request.  It is a no-op when not connected.
func (a *Agent) Disconnect() error {
	a.mu.Lock()
	lc := a.lc
	a.mu.Unlock()

	if lc == nil {
		return nil
	}
	a.teardown(lc)
	return nil
}

// Connected reports whether the agent holds a live connection.
func (a *Agent) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lc != nil
}

// FinalPending reports whether a final request awaits confirmation.
func (a *Agent) FinalPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Name returns the joined name, or "" when disconnected.
func (a *Agent) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}

// Done returns a channel closed when the current connection ends.  When
// disconnected the returned channel is already closed.
func (a *Agent) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// ── internals ────────────────────────────────────────────────────────

func (a *Agent) current() (*transport.LineConn, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lc, a.name
}

func (a *Agent) send(lc *transport.LineConn, line string) error {
	if err := lc.WriteLine(line); err != nil {
		a.teardown(lc)
		return fmt.Errorf("send: %w", err)
	}
	a.log.Debug("sent %s", line)
	return nil
}

func (a *Agent) readLoop(lc *transport.LineConn) {
	defer a.teardown(lc)

	for {
		line, err := lc.ReadLine()
		if err != nil {
			if !util.IsClosedConn(err) {
				a.log.Verbose("read: %v", err)
			}
			return
		}
		if !a.handle(lc, line) {
			return
		}
	}
}

// handle applies one server line.  It returns false once the auction
// has ended.
func (a *Agent) handle(lc *transport.LineConn, line string) bool {
	a.obs.Notify(line)

	msg, err := protocol.ParseServer(line)
	if err != nil {
		a.log.Verbose("%v", err)
		return true
	}

	switch msg.Kind {
	case protocol.FinalRequest:
		a.setPending(lc, true)
	case protocol.FinalConfirmed:
		a.setPending(lc, false)
	case protocol.End:
		return false
	}
	return true
}

func (a *Agent) setPending(lc *transport.LineConn, on bool) {
	a.mu.Lock()
	changed := a.lc == lc && a.pending != on
	if changed {
		a.pending = on
	}
	a.mu.Unlock()
	if changed {
		a.obs.FinalAvailable(on)
	}
}

// teardown releases lc and resets local state, provided lc is still the
// agent's connection.  A stale read loop cannot touch a newer one.
func (a *Agent) teardown(lc *transport.LineConn) {
	a.mu.Lock()
	if a.lc != lc {
		a.mu.Unlock()
		lc.Close()
		return
	}
	wasPending := a.pending
	done := a.done
	a.lc = nil
	a.name = ""
	a.pending = false
	a.mu.Unlock()

	lc.Close()
	close(done)
	if wasPending {
		a.obs.FinalAvailable(false)
	}
	a.log.Info("disconnected from auctioneer")
}

type nopObserver struct{}

func (nopObserver) Notify(string)       {}
func (nopObserver) FinalAvailable(bool) {}
