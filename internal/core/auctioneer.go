package core

import (
	"context"
	"errors"
	"io"
	"os"

	"bidmaster/config"
	"bidmaster/internal/auction"
	"bidmaster/internal/console"
	"bidmaster/internal/status"
	"bidmaster/util"
)

// AuctioneerMode runs the auction: it owns the coordinator and its
// listener, optionally serves the status API, and reads auctioneer
// commands from the console.
type AuctioneerMode struct {
	Coordinator *auction.Coordinator
	Listener    *Listener
	Status      *status.Server // nil disables the status API
	Item        string         // started at launch when set
	Logger      *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *AuctioneerMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *AuctioneerMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run serves until the user quits or ctx is cancelled.  A round still
// running at that point is ended, so every bidder receives END.
func (m *AuctioneerMode) Run(ctx context.Context) error {
	shell, err := console.New(m.stdin(), m.stdout(), "bidmaster> ")
	if err != nil {
		return err
	}
	defer shell.Close()
	m.Logger.SetOutput(shell.Writer())

	if m.Status != nil {
		if err := m.Status.Start(); err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
			defer cancel()
			m.Status.Shutdown(sctx) //nolint:errcheck
		}()
	}

	defer func() {
		if m.Coordinator.Running() {
			m.Coordinator.EndAuction()
		}
	}()

	if m.Item != "" {
		if err := m.Coordinator.StartAuction(m.Item); err != nil {
			return err
		}
	} else {
		m.Logger.Info("type 'start <item>' to open the auction, 'help' for commands")
	}

	shell.Handle(console.AuctioneerCommands(shell, m.Coordinator, m.Item)...)
	return waitShell(ctx, shell.Run(ctx), nil, m.Logger)
}

// waitShell interprets the console's exit.  Quitting and cancellation
// end the mode cleanly.  When input simply runs out (a script or
// /dev/null on stdin) the mode keeps serving until ctx is cancelled or
// done is closed.
func waitShell(ctx context.Context, err error, done <-chan struct{}, logger *util.Logger) error {
	switch {
	case err == nil, errors.Is(err, console.ErrQuit):
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil
	case errors.Is(err, io.EOF):
		logger.Verbose("console input closed, waiting for shutdown")
		select {
		case <-ctx.Done():
		case <-done:
		}
		return nil
	default:
		return err
	}
}
