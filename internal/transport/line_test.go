package transport

import (
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

func pipePair(t *testing.T) (*LineConn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return NewLineConn(a), b
}

func TestLineConn_ReadLine(t *testing.T) {
	lc, peer := pipePair(t)

	go func() {
		peer.Write([]byte("JOIN|alice\nBID|alice|100\r\n")) //nolint:errcheck
		peer.Close()
	}()

	for _, want := range []string{"JOIN|alice", "BID|alice|100"} {
		got, err := lc.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
	if _, err := lc.ReadLine(); err != io.EOF {
		t.Errorf("want io.EOF at end of stream, got %v", err)
	}
}

func TestLineConn_InvalidUTF8(t *testing.T) {
	lc, peer := pipePair(t)

	go func() {
		peer.Write([]byte("JOIN|al\xffice\n")) //nolint:errcheck
	}()

	got, err := lc.ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	if got != "JOIN|al�ice" {
		t.Errorf("got %q", got)
	}
}

func TestLineConn_LineTooLong(t *testing.T) {
	lc, peer := pipePair(t)

	go func() {
		peer.Write([]byte(strings.Repeat("x", MaxLineSize+10) + "\n")) //nolint:errcheck
	}()

	if _, err := lc.ReadLine(); err == nil || err == io.EOF {
		t.Fatalf("want a read error for an oversized line, got %v", err)
	}
}

func TestLineConn_WriteLine(t *testing.T) {
	lc, peer := pipePair(t)
	peerLines := NewLineConn(peer)

	go lc.WriteLine("START|Vase") //nolint:errcheck

	got, err := peerLines.ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	if got != "START|Vase" {
		t.Errorf("got %q", got)
	}
}

// TestLineConn_ConcurrentWrites verifies lines never interleave.
func TestLineConn_ConcurrentWrites(t *testing.T) {
	lc, peer := pipePair(t)
	peerLines := NewLineConn(peer)

	const writers, perWriter = 8, 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				lc.WriteLine("BID|" + strings.Repeat("a", 100) + "|100") //nolint:errcheck
			}
		}()
	}

	want := "BID|" + strings.Repeat("a", 100) + "|100"
	for i := 0; i < writers*perWriter; i++ {
		got, err := peerLines.ReadLine()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("line %d interleaved: %q", i, got)
		}
	}
	wg.Wait()
}

func TestLineConn_CloseUnblocksRead(t *testing.T) {
	lc, _ := pipePair(t)

	done := make(chan error, 1)
	go func() {
		_, err := lc.ReadLine()
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := lc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Idempotent.
	if err := lc.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Error("ReadLine should fail after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadLine did not return after Close")
	}
}
