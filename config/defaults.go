package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultPort is the well-known auction port.
	DefaultPort = 5000

	// DefaultHost is where a bidder connects when no host is given.
	DefaultHost = "localhost"

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultFlushTimeout bounds how long a closing session keeps
	// writing queued lines to a slow peer.
	DefaultFlushTimeout = 2 * time.Second

	// DefaultBacklog is how many queued lines a bidder may fall behind
	// before it is reported as slow.
	DefaultBacklog = 64

	// DefaultDialTimeout is the bidder's TCP/SSH connect timeout.
	DefaultDialTimeout = 10 * time.Second

	// DefaultShutdownTimeout bounds the status server's graceful stop.
	DefaultShutdownTimeout = 5 * time.Second

	// EnvPrefix prefixes every environment variable bidmaster reads.
	EnvPrefix = "BIDMASTER_"
)
