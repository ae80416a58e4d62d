package metrics

import (
	"encoding/json"
	"testing"
)

func TestCollector_Sessions(t *testing.T) {
	c := New()

	c.SessionOpened()
	c.SessionOpened()
	if c.ActiveSessions() != 2 {
		t.Errorf("active = %d, want 2", c.ActiveSessions())
	}
	if c.TotalSessions() != 2 {
		t.Errorf("total = %d, want 2", c.TotalSessions())
	}

	c.SessionClosed()
	if c.ActiveSessions() != 1 {
		t.Errorf("active = %d, want 1", c.ActiveSessions())
	}
	if c.TotalSessions() != 2 {
		t.Errorf("total should remain 2, got %d", c.TotalSessions())
	}
}

func TestCollector_Auction(t *testing.T) {
	c := New()

	c.RoundStarted()
	c.BidRecorded()
	c.BidRecorded()
	c.FinalRequested()
	c.Rejected()
	c.FinalConfirmed()
	c.Malformed()

	if c.Bids() != 2 {
		t.Errorf("bids = %d, want 2", c.Bids())
	}
	if c.Confirmations() != 1 {
		t.Errorf("confirmations = %d, want 1", c.Confirmations())
	}
	if c.Rejections() != 1 {
		t.Errorf("rejections = %d, want 1", c.Rejections())
	}
	if c.MalformedLines() != 1 {
		t.Errorf("malformed = %d, want 1", c.MalformedLines())
	}

	snap := c.Snapshot()
	if snap.Rounds != 1 || snap.FinalRequests != 1 {
		t.Errorf("snap rounds=%d finals=%d", snap.Rounds, snap.FinalRequests)
	}
	if snap.LastBid == "" {
		t.Error("expected last bid timestamp")
	}
}

func TestCollector_Errors(t *testing.T) {
	c := New()

	c.RecordError("first error")
	c.RecordError("second error")

	if c.ErrorCount() != 2 {
		t.Errorf("errors = %d, want 2", c.ErrorCount())
	}
	if got := c.Snapshot().LastErrorMessage; got != "second error" {
		t.Errorf("last error = %q", got)
	}
}

func TestCollector_JSON(t *testing.T) {
	c := New()
	c.SessionOpened()
	c.Broadcast()
	c.LineDropped()

	raw := c.JSON()
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("JSON parse error: %v", err)
	}
	if snap.SessionsActive != 1 {
		t.Errorf("JSON active = %d", snap.SessionsActive)
	}
	if snap.Broadcasts != 1 || snap.LinesDropped != 1 {
		t.Errorf("JSON broadcasts=%d dropped=%d", snap.Broadcasts, snap.LinesDropped)
	}
}

func TestNilCollector_NoOps(t *testing.T) {
	var c *Collector

	// None of these should panic.
	c.SessionOpened()
	c.SessionClosed()
	c.RoundStarted()
	c.BidRecorded()
	c.FinalRequested()
	c.FinalConfirmed()
	c.Rejected()
	c.Malformed()
	c.Broadcast()
	c.LineDropped()
	c.RecordError("test")

	if c.ActiveSessions() != 0 || c.Bids() != 0 || c.ErrorCount() != 0 {
		t.Error("nil collector should return 0")
	}

	snap := c.Snapshot()
	if snap.SessionsActive != 0 {
		t.Error("nil snapshot should be zero")
	}

	if j := c.JSON(); j == "" {
		t.Error("nil JSON should return valid JSON")
	}
}
