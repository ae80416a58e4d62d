// Package cmd wires up the CLI flags and dispatches to the bidmaster core.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	flag "github.com/spf13/pflag"

	"bidmaster/config"
	"bidmaster/internal/core"
	"bidmaster/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X bidmaster/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the auctioneer or bidder mode.
func Execute(ctx context.Context, args []string) error {
	// Environment first, so flag defaults already reflect it.
	cfg := config.Defaults()
	config.LoadFromEnv(&cfg)

	fs := flag.NewFlagSet("bidmaster", flag.ContinueOnError)

	// ── auctioneer ───────────────────────────────────────────────
	fs.BoolVarP(&cfg.Listen, "listen", "l", cfg.Listen, "Run as the auctioneer")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Auction port")
	fs.StringVarP(&cfg.Item, "item", "i", cfg.Item, "Open the auction for this item at start-up")
	fs.StringVar(&cfg.StatusAddr, "status-addr", cfg.StatusAddr, "Serve the HTTP status API on this address")
	fs.DurationVar(&cfg.FlushTimeout, "flush-timeout", cfg.FlushTimeout, "How long a closing session may flush queued lines")
	fs.IntVar(&cfg.Backlog, "backlog", cfg.Backlog, "Queued lines at which a slow bidder is reported")

	// ── bidder ───────────────────────────────────────────────────
	fs.StringVarP(&cfg.Name, "name", "N", cfg.Name, "Bidder name; joins at start-up when set")
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only, no DNS resolution")

	timeoutSec := int(cfg.Timeout / time.Second)
	fs.IntVarP(&timeoutSec, "timeout", "w", timeoutSec, "Connect timeout in seconds")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Reach the auctioneer via SSH gateway [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	var verbose int
	var quiet bool
	fs.CountVarP(&verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVarP(&quiet, "quiet", "q", false, "Only print errors")

	var configPath string
	var showVersion, showHelp, dryRun bool
	fs.StringVar(&configPath, "config", "", "YAML configuration file")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration and exit")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("bidmaster %s\n", version)
		return nil
	}

	// ── config file ──────────────────────────────────────────────
	if configPath != "" {
		f, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		f.Apply(&cfg, fs.Changed)
	}

	if fs.Changed("timeout") {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}
	switch {
	case quiet:
		cfg.Verbose = int(util.LogQuiet)
	case verbose > 0:
		cfg.Verbose = int(util.LogNormal) + verbose
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(&cfg, fs.Args()); err != nil {
		return err
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	if dryRun {
		printSummary(&cfg)
		return nil
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	mode, err := core.Build(&cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Listen {
		switch len(remaining) {
		case 0: // bidmaster -l [-p PORT]
		case 1:
			cfg.Host = remaining[0]
		default:
			return fmt.Errorf("too many arguments for auctioneer mode")
		}
		return nil
	}

	// Bidder: [host [port]]
	switch len(remaining) {
	case 0:
	case 1, 2:
		cfg.Host = remaining[0]
		if len(remaining) == 2 {
			p, err := strconv.Atoi(remaining[1])
			if err != nil {
				return fmt.Errorf("port %q: not a number", remaining[1])
			}
			cfg.Port = p
		}
	default:
		return fmt.Errorf("too many arguments (expected [host [port]])")
	}
	return nil
}

func printSummary(cfg *config.Config) {
	if cfg.Listen {
		item := cfg.Item
		if item == "" {
			item = "(none, use 'start <item>')"
		}
		fmt.Printf("auctioneer on %s, item %s\n", util.ListenAddr(cfg.Host, cfg.Port), item)
		if cfg.StatusAddr != "" {
			fmt.Printf("status API on %s\n", cfg.StatusAddr)
		}
		return
	}

	name := cfg.Name
	if name == "" {
		name = "(join manually)"
	}
	fmt.Printf("bidder %s -> %s:%d\n", name, cfg.DialHost(), cfg.Port)
	if cfg.TunnelEnabled {
		fmt.Printf("via SSH gateway %s@%s:%d\n", cfg.TunnelUser, cfg.TunnelHost, cfg.TunnelPort)
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `BidMaster – Networked Auction v%s

An auctioneer and its bidders over a line-based TCP protocol.

Usage:
  bidmaster -l [-p <port>] [options] [bind-host]   Auctioneer
  bidmaster [-N <name>] [options] [host [port]]    Bidder
  bidmaster -T user@gateway -N <name> <host>       Bidder via SSH

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  bidmaster -l --item "Blue Vase"                  Open an auction on :%d
  bidmaster -l --status-addr :8080                 With the HTTP status API
  bidmaster -N alice auction.lan                   Join as alice
  bidmaster -N bob -T ops@bastion 10.0.0.5 6000    Join through a bastion

Environment variables (%sPORT, %sNAME, ...) and --config are read
before flags; flags win.
`, config.DefaultPort, config.EnvPrefix, config.EnvPrefix)
}
