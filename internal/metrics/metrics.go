// Package metrics provides lightweight, lock-free counters for tracking
// the runtime statistics of an auctioneer.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one auctioneer process.
// A nil Collector is safe to use — all methods become no-ops.
type Collector struct {
	sessionsActive atomic.Int64
	sessionsTotal  atomic.Int64
	rounds         atomic.Int64
	bids           atomic.Int64
	finalRequests  atomic.Int64
	finalConfirmed atomic.Int64
	rejected       atomic.Int64 // arbitration rejections
	malformed      atomic.Int64 // protocol violations
	broadcasts     atomic.Int64
	linesDropped   atomic.Int64
	errorsTotal    atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastBid      time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionOpened increments both the active and total counters.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionClosed decrements the active session counter.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
}

// ActiveSessions returns the number of registered sessions.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// TotalSessions returns the lifetime session count.
func (c *Collector) TotalSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsTotal.Load()
}

// ── Auction metrics ──────────────────────────────────────────────────

// RoundStarted records a START broadcast.
func (c *Collector) RoundStarted() {
	if c == nil {
		return
	}
	c.rounds.Add(1)
}

// BidRecorded records an accepted bid.
func (c *Collector) BidRecorded() {
	if c == nil {
		return
	}
	c.bids.Add(1)
	c.mu.Lock()
	c.lastBid = time.Now()
	c.mu.Unlock()
}

// Bids returns the number of accepted bids.
func (c *Collector) Bids() int64 {
	if c == nil {
		return 0
	}
	return c.bids.Load()
}

// FinalRequested records a FINAL_REQUEST broadcast.
func (c *Collector) FinalRequested() {
	if c == nil {
		return
	}
	c.finalRequests.Add(1)
}

// FinalConfirmed records an accepted FINAL_CONFIRM.
func (c *Collector) FinalConfirmed() {
	if c == nil {
		return
	}
	c.finalConfirmed.Add(1)
}

// Confirmations returns the number of accepted final confirmations.
func (c *Collector) Confirmations() int64 {
	if c == nil {
		return 0
	}
	return c.finalConfirmed.Load()
}

// Rejected records a request the coordinator refused.
func (c *Collector) Rejected() {
	if c == nil {
		return
	}
	c.rejected.Add(1)
}

// Rejections returns the number of refused requests.
func (c *Collector) Rejections() int64 {
	if c == nil {
		return 0
	}
	return c.rejected.Load()
}

// Malformed records a discarded protocol line.
func (c *Collector) Malformed() {
	if c == nil {
		return
	}
	c.malformed.Add(1)
}

// MalformedLines returns the number of discarded protocol lines.
func (c *Collector) MalformedLines() int64 {
	if c == nil {
		return 0
	}
	return c.malformed.Load()
}

// ── Delivery metrics ─────────────────────────────────────────────────

// Broadcast records one fan-out to the roster.
func (c *Collector) Broadcast() {
	if c == nil {
		return
	}
	c.broadcasts.Add(1)
}

// LineDropped records a queued line lost when a session's write failed.
func (c *Collector) LineDropped() {
	if c == nil {
		return
	}
	c.linesDropped.Add(1)
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SessionsActive   int64  `json:"sessions_active"`
	SessionsTotal    int64  `json:"sessions_total"`
	Rounds           int64  `json:"rounds"`
	Bids             int64  `json:"bids"`
	FinalRequests    int64  `json:"final_requests"`
	FinalConfirmed   int64  `json:"final_confirmed"`
	Rejected         int64  `json:"rejected"`
	Malformed        int64  `json:"malformed"`
	Broadcasts       int64  `json:"broadcasts"`
	LinesDropped     int64  `json:"lines_dropped"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastBid          string `json:"last_bid,omitempty"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:         time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsActive: c.sessionsActive.Load(),
		SessionsTotal:  c.sessionsTotal.Load(),
		Rounds:         c.rounds.Load(),
		Bids:           c.bids.Load(),
		FinalRequests:  c.finalRequests.Load(),
		FinalConfirmed: c.finalConfirmed.Load(),
		Rejected:       c.rejected.Load(),
		Malformed:      c.malformed.Load(),
		Broadcasts:     c.broadcasts.Load(),
		LinesDropped:   c.linesDropped.Load(),
		ErrorsTotal:    c.errorsTotal.Load(),
	}
	if !c.lastBid.IsZero() {
		s.LastBid = c.lastBid.Format(time.RFC3339)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
