// BidMaster - a networked auction: one auctioneer, many bidders.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bidmaster/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bidmaster: %v\n", err)
		os.Exit(1)
	}
}
