package core

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"bidmaster/config"
	"bidmaster/internal/console"
	"bidmaster/internal/transport"
	"bidmaster/util"
)

// lockedBuffer collects console output written from several goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// readUntil reads lines from lc until one starts with prefix.
func readUntil(t *testing.T, lc *transport.LineConn, prefix string) string {
	t.Helper()
	type result struct {
		line string
		err  error
	}
	deadline := time.After(3 * time.Second)
	for {
		ch := make(chan result, 1)
		go func() {
			line, err := lc.ReadLine()
			ch <- result{line, err}
		}()
		select {
		case r := <-ch:
			if r.err != nil {
				t.Fatalf("waiting for %q: %v", prefix, r.err)
			}
			if strings.HasPrefix(r.line, prefix) {
				return r.line
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", prefix)
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// ── AuctioneerMode ───────────────────────────────────────────────────

// TestAuctioneerMode_Round drives a whole round: the item is opened at
// launch, a bidder joins and bids, the auctioneer calls the final bid
// from the console and quitting ends the auction for everyone.
func TestAuctioneerMode_Round(t *testing.T) {
	cfg := config.Defaults()
	cfg.Listen = true
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.Item = "Vase"

	mode, err := Build(&cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	am := mode.(*AuctioneerMode)

	stdin, input := io.Pipe()
	defer input.Close()
	out := &lockedBuffer{}
	am.Stdin, am.Stdout = stdin, out

	done := make(chan error, 1)
	go func() { done <- am.Run(context.Background()) }()

	waitFor(t, "listener", func() bool { return am.Listener.Addr() != nil })
	conn, err := net.DialTimeout("tcp", am.Listener.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	lc := transport.NewLineConn(conn)
	defer lc.Close()

	if err := lc.WriteLine("JOIN|alice"); err != nil {
		t.Fatal(err)
	}
	readUntil(t, lc, "BIDMASTER|INFO|alice joined.")
	if err := lc.WriteLine("BID|alice|100"); err != nil {
		t.Fatal(err)
	}
	if got := readUntil(t, lc, "BID|"); got != "BID|alice|100" {
		t.Errorf("bid broadcast = %q", got)
	}

	io.WriteString(input, "final\n") //nolint:errcheck
	if got := readUntil(t, lc, "FINAL_REQUEST|"); got != "FINAL_REQUEST|alice|100" {
		t.Errorf("final request = %q", got)
	}
	if err := lc.WriteLine("FINAL_CONFIRM|alice"); err != nil {
		t.Fatal(err)
	}
	if got := readUntil(t, lc, "BIDMASTER|FINAL_CONFIRMED|"); got != "BIDMASTER|FINAL_CONFIRMED|alice|100" {
		t.Errorf("confirmation = %q", got)
	}

	io.WriteString(input, "status\n") //nolint:errcheck
	waitFor(t, "status output", func() bool {
		return strings.Contains(out.String(), "running, item: Vase, last bid: alice at 100")
	})

	io.WriteString(input, "quit\n") //nolint:errcheck
	readUntil(t, lc, "END")

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("auctioneer did not exit after quit")
	}
	if am.Coordinator.Running() {
		t.Error("auction still running after quit")
	}
}

// TestAuctioneerMode_CancelEndsAuction verifies cancellation sends END
// to connected bidders.
func TestAuctioneerMode_CancelEndsAuction(t *testing.T) {
	cfg := config.Defaults()
	cfg.Listen = true
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.Item = "Lamp"

	mode, err := Build(&cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	am := mode.(*AuctioneerMode)
	stdin, input := io.Pipe()
	defer input.Close()
	am.Stdin, am.Stdout = stdin, io.Discard

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- am.Run(ctx) }()

	waitFor(t, "listener", func() bool { return am.Listener.Addr() != nil })
	conn, err := net.DialTimeout("tcp", am.Listener.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	lc := transport.NewLineConn(conn)
	defer lc.Close()
	waitFor(t, "session", func() bool { return am.Coordinator.State().Sessions == 1 })

	cancel()
	readUntil(t, lc, "END")
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("auctioneer ignored cancellation")
	}
}

// TestAuctioneerMode_BindFailure verifies that a taken port is reported
// when the item is opened at launch.
func TestAuctioneerMode_BindFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer taken.Close()

	cfg := config.Defaults()
	cfg.Listen = true
	cfg.Host = "127.0.0.1"
	cfg.Port = taken.Addr().(*net.TCPAddr).Port
	cfg.Item = "Vase"

	mode, err := Build(&cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	am := mode.(*AuctioneerMode)
	am.Stdin, am.Stdout = strings.NewReader(""), io.Discard

	if err := am.Run(context.Background()); err == nil {
		t.Fatal("expected bind error")
	}
}

// ── BidderMode ───────────────────────────────────────────────────────

// TestBidderMode_JoinBidAndEnd verifies the bidder joins at launch,
// sends console bids and exits once the auctioneer ends the auction
// after input has run out.
func TestBidderMode_JoinBidAndEnd(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	accepted := make(chan *transport.LineConn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- transport.NewLineConn(conn)
		}
	}()

	stdin, input := io.Pipe()
	out := &lockedBuffer{}
	mode := &BidderMode{
		Dialer: &transport.TCPDialer{Timeout: 2 * time.Second},
		Target: console.Target{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port, Name: "alice"},
		Logger: util.NewLogger(0),
		Stdin:  stdin,
		Stdout: out,
	}

	done := make(chan error, 1)
	go func() { done <- mode.Run(context.Background()) }()

	var lc *transport.LineConn
	select {
	case lc = <-accepted:
	case <-time.After(3 * time.Second):
		t.Fatal("bidder did not connect")
	}
	defer lc.Close()

	if got := readUntil(t, lc, "JOIN|"); got != "JOIN|alice" {
		t.Errorf("join = %q", got)
	}
	io.WriteString(input, "bid 250\n") //nolint:errcheck
	if got := readUntil(t, lc, "BID|"); got != "BID|alice|250" {
		t.Errorf("bid = %q", got)
	}

	if err := lc.WriteLine("FINAL_REQUEST|alice|250"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "final prompt", func() bool {
		return strings.Contains(out.String(), "Final call: alice at 250")
	})

	input.Close()
	if err := lc.WriteLine("END"); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("bidder did not exit after END")
	}
	if !strings.Contains(out.String(), "The auctioneer ended the auction.") {
		t.Errorf("missing END notice in output:\n%s", out.String())
	}
}

// TestBidderMode_JoinFailure verifies that an unreachable auctioneer is
// reported when joining at launch.
func TestBidderMode_JoinFailure(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	mode := &BidderMode{
		Dialer: &transport.TCPDialer{Timeout: time.Second},
		Target: console.Target{Host: "127.0.0.1", Port: port, Name: "alice"},
		Logger: util.NewLogger(0),
		Stdin:  strings.NewReader(""),
		Stdout: io.Discard,
	}

	err = mode.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "join 127.0.0.1:") {
		t.Errorf("expected join error, got %v", err)
	}
}

// TestBidderMode_QuitWithoutJoin verifies a bidder that never joined
// exits cleanly on quit.
func TestBidderMode_QuitWithoutJoin(t *testing.T) {
	mode := &BidderMode{
		Dialer: &transport.TCPDialer{},
		Target: console.Target{Host: "127.0.0.1", Port: 5000},
		Logger: util.NewLogger(0),
		Stdin:  strings.NewReader("status\nquit\n"),
		Stdout: io.Discard,
	}
	if err := mode.Run(context.Background()); err != nil {
		t.Errorf("Run: %v", err)
	}
}
