package core

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"bidmaster/internal/auction"
	"bidmaster/internal/bidder"
	"bidmaster/internal/metrics"
	"bidmaster/internal/session"
	"bidmaster/internal/transport"
	"bidmaster/util"
)

// TestAuction_BurstKeepsBidders verifies that a burst of simultaneous
// bids, fanned out to every bidder, disconnects nobody even when the
// fan-out exceeds the slow-bidder backlog.
func TestAuction_BurstKeepsBidders(t *testing.T) {
	const bidders = 80

	m := metrics.New()
	ln := &Listener{Address: "127.0.0.1:0", Logger: util.NewLogger(0)}
	coord := auction.New(auction.Options{
		Gate:    ln,
		Metrics: m,
		Session: session.Options{Backlog: 8},
	})
	if err := coord.StartAuction("Vase"); err != nil {
		t.Fatal(err)
	}
	defer coord.EndAuction()
	port := ln.Addr().(*net.TCPAddr).Port

	agents := make([]*bidder.Agent, bidders)
	for i := range agents {
		a := bidder.New(bidder.Options{Dialer: &transport.TCPDialer{Timeout: 2 * time.Second}})
		if err := a.Join(context.Background(), "127.0.0.1", port, fmt.Sprintf("bidder%d", i)); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
		defer a.Disconnect() //nolint:errcheck
		agents[i] = a
	}
	waitFor(t, "all joins", func() bool { return len(coord.State().Bidders) == bidders })

	var wg sync.WaitGroup
	for _, a := range agents {
		wg.Add(1)
		go func(a *bidder.Agent) {
			defer wg.Done()
			if err := a.Bid("1"); err != nil {
				t.Errorf("bid: %v", err)
			}
		}(a)
	}
	wg.Wait()
	waitFor(t, "all bids", func() bool { return m.Bids() == bidders })

	if got := coord.State().Sessions; got != bidders {
		t.Errorf("sessions after burst = %d, want %d", got, bidders)
	}
	for i, a := range agents {
		if !a.Connected() {
			t.Errorf("bidder%d disconnected by the burst", i)
		}
	}
	if dropped := m.Snapshot().LinesDropped; dropped != 0 {
		t.Errorf("lines dropped = %d", dropped)
	}

	// A later bid still lands and can be confirmed.
	if err := agents[0].Bid("100"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "last bid", func() bool {
		st := coord.State()
		return st.LastBidder == "bidder0" && st.LastAmount == "100"
	})
	if err := coord.RequestFinal(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "final request", agents[0].FinalPending)
	if err := agents[0].ConfirmFinal(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "confirmation", func() bool { return !coord.State().FinalPending })
}
