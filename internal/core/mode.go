// Package core is the orchestration layer.  It composes the listener,
// the auction coordinator, the bidder agent and the console into
// complete operational modes and provides a builder that selects the
// right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  session  →  auction / bidder  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of bidmaster (auctioneer
// or bidder).  Each mode owns its full lifecycle from the first
// connection to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
