// Package config defines the runtime configuration for bidmaster and
// the helpers that fill it from defaults, a YAML file, environment
// variables and flags.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	ncerr "bidmaster/internal/errors"
	"bidmaster/internal/protocol"
)

// Config holds every tuneable for one bidmaster process.
type Config struct {
	// ── Role and address ─────────────────────────────────────────────
	Listen bool   // run as the auctioneer
	Host   string // auctioneer: bind host ("" = all interfaces); bidder: auctioneer host
	Port   int
	NoDNS  bool

	// ── Auctioneer ───────────────────────────────────────────────────
	Item         string        // item offered by "start" without an argument
	StatusAddr   string        // status API address; empty disables it
	FlushTimeout time.Duration // bound on flushing a closing session
	Backlog      int           // queued lines at which a slow bidder is reported

	// ── Bidder ───────────────────────────────────────────────────────
	Name    string        // join immediately under this name
	Timeout time.Duration // connect timeout

	// ── SSH gateway (bidder) ─────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
}

// Defaults returns a Config with every default applied.
func Defaults() Config {
	return Config{
		Port:         DefaultPort,
		FlushTimeout: DefaultFlushTimeout,
		Backlog:      DefaultBacklog,
		Timeout:      DefaultDialTimeout,
		Verbose:      1,
	}
}

// DialHost returns the host a bidder connects to.
func (c *Config) DialHost() string {
	if c.Host == "" {
		return DefaultHost
	}
	return c.Host
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q: expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec into the Tunnel* fields.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return err
	}
	c.TunnelEnabled = true
	c.TunnelUser, c.TunnelHost, c.TunnelPort = user, host, port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &ncerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 1-65535",
			Hint:    fmt.Sprintf("the default auction port is %d", DefaultPort),
		}
	}

	if c.Listen {
		if c.TunnelEnabled {
			return &ncerr.ConfigError{
				Field:   "tunnel",
				Value:   c.TunnelSpec,
				Message: "the auctioneer cannot listen through an SSH gateway",
				Hint:    "use -T on the bidder side only",
			}
		}
		if c.Name != "" {
			return &ncerr.ConfigError{
				Field:   "name",
				Value:   c.Name,
				Message: "only bidders have a name",
				Hint:    "drop -N, or drop -l to run as a bidder",
			}
		}
		if c.Item != "" && !protocol.ValidField(c.Item) {
			return &ncerr.ConfigError{Field: "item", Value: c.Item, Message: "must not contain '|' or line breaks"}
		}
		if c.Backlog < 1 {
			return &ncerr.ConfigError{Field: "backlog", Value: c.Backlog, Message: "must be at least 1"}
		}
		if c.FlushTimeout <= 0 {
			return &ncerr.ConfigError{Field: "flush-timeout", Value: c.FlushTimeout, Message: "must be positive"}
		}
		return nil
	}

	if c.StatusAddr != "" {
		return &ncerr.ConfigError{
			Field:   "status-addr",
			Value:   c.StatusAddr,
			Message: "the status API is served by the auctioneer",
			Hint:    "add -l to run as the auctioneer",
		}
	}
	if c.Name != "" && !protocol.ValidField(c.Name) {
		return &ncerr.ConfigError{Field: "name", Value: c.Name, Message: "must not contain '|' or line breaks"}
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &ncerr.ConfigError{Field: "tunnel", Message: "gateway host is required", Hint: "-T user@host[:port]"}
	}
	return nil
}
