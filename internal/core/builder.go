package core

import (
	"fmt"
	"net"

	"bidmaster/config"
	"bidmaster/internal/auction"
	"bidmaster/internal/console"
	"bidmaster/internal/metrics"
	"bidmaster/internal/session"
	"bidmaster/internal/status"
	"bidmaster/internal/transport"
	"bidmaster/util"
)

// Build constructs the appropriate Mode from the given configuration.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Listen {
		return buildAuctioneer(cfg, logger)
	}
	return buildBidder(cfg, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildAuctioneer(cfg *config.Config, logger *util.Logger) (Mode, error) {
	m := metrics.New()
	ln := &Listener{
		Address: util.ListenAddr(cfg.Host, cfg.Port),
		Logger:  logger,
	}
	coord := auction.New(auction.Options{
		Gate:    ln,
		Logger:  logger,
		Metrics: m,
		Session: session.Options{
			Backlog:      cfg.Backlog,
			FlushTimeout: cfg.FlushTimeout,
		},
	})

	mode := &AuctioneerMode{
		Coordinator: coord,
		Listener:    ln,
		Item:        cfg.Item,
		Logger:      logger,
	}
	if cfg.StatusAddr != "" {
		mode.Status = &status.Server{
			Address: cfg.StatusAddr,
			Handler: status.NewHandler(coord, m, logger),
			Logger:  logger,
		}
	}
	return mode, nil
}

func buildBidder(cfg *config.Config, logger *util.Logger) (Mode, error) {
	host := cfg.DialHost()
	if cfg.NoDNS && net.ParseIP(host) == nil {
		return nil, fmt.Errorf(
			"cannot parse %q as an IP address (DNS disabled with -n)", host)
	}

	return &BidderMode{
		Dialer: buildDialer(cfg, logger),
		Target: console.Target{Host: host, Port: cfg.Port, Name: cfg.Name},
		NoDNS:  cfg.NoDNS,
		Logger: logger,
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&transport.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
		}, logger)
	}
	return &transport.TCPDialer{Timeout: cfg.Timeout}
}
