// Package auction owns the auction state and its arbitration rules.
//
// A single Coordinator holds the current item, the last bid and the
// pending-final flag behind one mutex.  Every state change that other
// participants must see is broadcast while that mutex is held, so each
// bidder receives events in exactly the order they were applied.
// Broadcasting never blocks: lines are queued on each session's outbox
// and written by that session's own goroutine.
package auction

import (
	"net"
	"sort"
	"sync"

	ncerr "bidmaster/internal/errors"
	"bidmaster/internal/metrics"
	"bidmaster/internal/protocol"
	"bidmaster/internal/session"
	"bidmaster/util"
)

// Gate is the coordinator's view of the listener: something that can
// start and stop admitting connections.
type Gate interface {
	Open(serve func(net.Conn)) error
	Close() error
	Running() bool
}

// Options configures a Coordinator.
type Options struct {
	Gate    Gate
	Logger  *util.Logger
	Metrics *metrics.Collector
	Session session.Options
}

// Coordinator arbitrates a single auctioneer's rounds.
type Coordinator struct {
	gate    Gate
	roster  *Roster
	log     *util.Logger
	metrics *metrics.Collector
	sessOpt session.Options

	mu           sync.Mutex
	item         string
	lastBidder   string
	lastAmount   string
	hasBid       bool
	finalPending bool
}

// New creates a coordinator.  With no Gate, admissions are controlled
// by the roster alone.
func New(opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(int(util.LogQuiet))
	}
	if opts.Gate == nil {
		opts.Gate = &nopGate{}
	}
	if opts.Session.Logger == nil {
		opts.Session.Logger = opts.Logger
	}
	if opts.Session.Metrics == nil {
		opts.Session.Metrics = opts.Metrics
	}
	return &Coordinator{
		gate:    opts.Gate,
		roster:  NewRoster(),
		log:     opts.Logger,
		metrics: opts.Metrics,
		sessOpt: opts.Session,
	}
}

// ── Auctioneer operations ────────────────────────────────────────────

// StartAuction begins a round for item.  If the gate is closed it is
// opened first; when that fails nothing changes and the error is
// returned.  Connected bidders stay connected across rounds.
func (c *Coordinator) StartAuction(item string) error {
	if item == "" {
		return ncerr.ErrEmptyItem
	}
	if !protocol.ValidField(item) {
		return ncerr.ErrInvalidField
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gate.Running() {
		c.log.Info("auction already running, keeping connected bidders")
	} else {
		c.roster.Open()
		if err := c.gate.Open(c.ServeConn); err != nil {
			c.roster.Seal()
			c.metrics.RecordError(err.Error())
			return err
		}
	}

	c.item = item
	c.resetBid()
	c.metrics.RoundStarted()
	c.log.Info("auction started: %s", item)
	c.broadcast(protocol.StartLine(item))
	return nil
}

// EndAuction announces the end of the round, stops admissions and
// disconnects every bidder.  Queued lines, END included, are flushed
// before each connection closes.
func (c *Coordinator) EndAuction() {
	c.mu.Lock()
	c.broadcast(protocol.EndLine)
	if err := c.gate.Close(); err != nil {
		c.log.Warn("closing listener: %v", err)
	}
	sessions := c.roster.Seal()
	item := c.item
	c.item = ""
	c.resetBid()
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *session.Session) {
			defer wg.Done()
			s.Close()
		}(s)
		c.metrics.SessionClosed()
	}
	wg.Wait()

	if item != "" {
		c.log.Info("auction ended: %s", item)
	} else {
		c.log.Info("auction ended")
	}
}

// RequestFinal asks the last bidder to confirm.  It fails with ErrNoBid
// before any bid and with ErrFinalPending while a request is open.
func (c *Coordinator) RequestFinal() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasBid {
		c.metrics.Rejected()
		c.log.Warn("final request rejected: %v", ncerr.ErrNoBid)
		return ncerr.ErrNoBid
	}
	if c.finalPending {
		c.metrics.Rejected()
		c.log.Warn("final request rejected: %v", ncerr.ErrFinalPending)
		return ncerr.ErrFinalPending
	}

	c.finalPending = true
	c.metrics.FinalRequested()
	c.log.Info("final confirmation requested from %s at %s", c.lastBidder, c.lastAmount)
	c.broadcast(protocol.FinalRequestLine(c.lastBidder, c.lastAmount))
	return nil
}

// ── Bidder operations ────────────────────────────────────────────────

// Join records the name a session declared and announces it.
func (c *Coordinator) Join(sess *session.Session, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := sess.SetName(name); err != nil {
		c.metrics.Rejected()
		return err
	}
	c.log.Info("%s joined from %s", name, sess.RemoteAddr())
	c.broadcast(protocol.InfoLine(name + " joined."))
	return nil
}

// RecordBid makes amount the current bid under the session's declared
// name.  The latest bid always wins; amounts are never compared.  A bid
// during a pending final request rebinds the request to the new bidder.
func (c *Coordinator) RecordBid(sess *session.Session, amount string) {
	name := sess.Name()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastBidder = name
	c.lastAmount = amount
	c.hasBid = true
	c.metrics.BidRecorded()
	c.log.Info("bid: %s offers %s", displayName(name), amount)
	c.broadcast(protocol.BidLine(name, amount))
}

// ConfirmFinal accepts the last bidder's confirmation.  It fails with
// ErrNoFinalRequested when nothing is pending and with ErrWrongBidder
// when name is not the last bidder; neither changes any state.
func (c *Coordinator) ConfirmFinal(sess *session.Session, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.finalPending {
		c.metrics.Rejected()
		return ncerr.ErrNoFinalRequested
	}
	if name != c.lastBidder {
		c.metrics.Rejected()
		return ncerr.ErrWrongBidder
	}

	c.finalPending = false
	c.metrics.FinalConfirmed()
	c.log.Info("final bid confirmed: %s at %s", name, c.lastAmount)
	c.broadcast(protocol.FinalConfirmedLine(name, c.lastAmount))
	return nil
}

// ── Roster ───────────────────────────────────────────────────────────

// RegisterSession adds sess to the roster.  It fails with
// ErrNotRunning between rounds.
func (c *Coordinator) RegisterSession(sess *session.Session) error {
	if err := c.roster.Add(sess); err != nil {
		return err
	}
	c.metrics.SessionOpened()
	return nil
}

// UnregisterSession removes sess from the roster.  Removing a session
// that is not a member is a no-op.
func (c *Coordinator) UnregisterSession(sess *session.Session) {
	if c.roster.Remove(sess) {
		c.metrics.SessionClosed()
	}
}

// ── Connection handling ──────────────────────────────────────────────

// ServeConn runs one accepted connection to completion.
func (c *Coordinator) ServeConn(conn net.Conn) {
	sess := session.New(conn, c.sessOpt)
	if err := c.RegisterSession(sess); err != nil {
		c.log.Verbose("refusing %s: %v", conn.RemoteAddr(), err)
		sess.Close()
		return
	}
	sess.Logger().Verbose("connected from %s", sess.RemoteAddr())
	sess.Serve(c)
}

// HandleLine routes one inbound line.  Malformed lines and rejected
// requests are logged and dropped; the connection stays up.
func (c *Coordinator) HandleLine(sess *session.Session, line string) {
	msg, err := protocol.ParseClient(line)
	if err != nil {
		c.metrics.Malformed()
		sess.Logger().Warn("discarding line: %v", err)
		return
	}

	switch msg.Kind {
	case protocol.Join:
		err = c.Join(sess, msg.Name)
	case protocol.Bid:
		if joined := sess.Name(); joined != msg.Name {
			sess.Logger().Verbose("bid names %q, recording it under %q", msg.Name, joined)
		}
		c.RecordBid(sess, msg.Amount)
	case protocol.FinalConfirm:
		err = c.ConfirmFinal(sess, msg.Name)
	}
	if err != nil {
		sess.Logger().Warn("%s from %s rejected: %v", msg.Kind, displayName(msg.Name), err)
	}
}

// SessionClosed unregisters a session whose connection ended.
func (c *Coordinator) SessionClosed(sess *session.Session) {
	c.UnregisterSession(sess)
	if name := sess.Name(); name != "" {
		c.log.Info("%s disconnected", name)
	} else {
		sess.Logger().Verbose("disconnected")
	}
}

// ── Inspection ───────────────────────────────────────────────────────

// State returns a point-in-time copy of the auction.
func (c *Coordinator) State() State {
	c.mu.Lock()
	st := State{
		Item:         c.item,
		LastBidder:   c.lastBidder,
		LastAmount:   c.lastAmount,
		HasBid:       c.hasBid,
		FinalPending: c.finalPending,
		Running:      c.gate.Running(),
	}
	c.mu.Unlock()

	members := c.roster.Snapshot()
	st.Sessions = len(members)
	for _, s := range members {
		if n := s.Name(); n != "" {
			st.Bidders = append(st.Bidders, n)
		}
	}
	sort.Strings(st.Bidders)
	return st
}

// Running reports whether the auction is admitting bidders.
func (c *Coordinator) Running() bool { return c.gate.Running() }

// ── internals ────────────────────────────────────────────────────────

// broadcast queues line on every registered session.  Callers hold c.mu.
func (c *Coordinator) broadcast(line string) {
	c.metrics.Broadcast()
	for _, s := range c.roster.Snapshot() {
		if err := s.Send(line); err != nil {
			s.Logger().Debug("not delivered: %v", err)
		}
	}
}

func (c *Coordinator) resetBid() {
	c.lastBidder = ""
	c.lastAmount = ""
	c.hasBid = false
	c.finalPending = false
}

func displayName(name string) string {
	if name == "" {
		return "(anonymous)"
	}
	return name
}

// nopGate stands in for a listener when connections are fed to the
// coordinator by other means.
type nopGate struct {
	mu      sync.Mutex
	running bool
}

func (g *nopGate) Open(func(net.Conn)) error {
	g.mu.Lock()
	g.running = true
	g.mu.Unlock()
	return nil
}

func (g *nopGate) Close() error {
	g.mu.Lock()
	g.running = false
	g.mu.Unlock()
	return nil
}

func (g *nopGate) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}
