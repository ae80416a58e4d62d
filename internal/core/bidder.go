package core

import (
	"context"
	"fmt"
	"io"
	"os"

	"bidmaster/internal/bidder"
	"bidmaster/internal/console"
	"bidmaster/internal/transport"
	"bidmaster/util"
)

// BidderMode connects to an auctioneer and reads bidder commands from
// the console.  With a name configured it joins at launch.
type BidderMode struct {
	Dialer transport.Dialer
	Target console.Target
	NoDNS  bool
	Logger *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *BidderMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *BidderMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run drives the agent until the user quits or ctx is cancelled.  When
// input runs out it waits for the auctioneer to end the auction.
func (m *BidderMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	shell, err := console.New(m.stdin(), m.stdout(), "bid> ")
	if err != nil {
		return err
	}
	defer shell.Close()
	m.Logger.SetOutput(shell.Writer())

	agent := bidder.New(bidder.Options{
		Dialer:   m.Dialer,
		Observer: &console.BidderView{Shell: shell},
		Logger:   m.Logger,
		NoDNS:    m.NoDNS,
	})
	defer agent.Disconnect() //nolint:errcheck

	if m.Target.Name != "" {
		if err := agent.Join(ctx, m.Target.Host, m.Target.Port, m.Target.Name); err != nil {
			return fmt.Errorf("join %s:%d: %w", m.Target.Host, m.Target.Port, err)
		}
	} else {
		m.Logger.Info("type 'join <name>' to connect to %s:%d, 'help' for commands",
			m.Target.Host, m.Target.Port)
	}

	shell.Handle(console.BidderCommands(ctx, shell, agent, m.Target)...)
	err = shell.Run(ctx)
	return waitShell(ctx, err, agent.Done(), m.Logger)
}
