package console

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"bidmaster/internal/protocol"
)

// Bidder is what the bidder shell drives.
type Bidder interface {
	Join(ctx context.Context, host string, port int, name string) error
	Bid(amount string) error
	ConfirmFinal() error
	Disconnect() error
	Connected() bool
	FinalPending() bool
	Name() string
}

// Target is where "join" connects.
type Target struct {
	Host string
	Port int
	Name string // default name when "join" has none
}

// BidderCommands returns the bidder's verbs.
func BidderCommands(ctx context.Context, s *Shell, b Bidder, to Target) []Command {
	return []Command{
		{
			Name:  "join",
			Usage: "[name]",
			Help:  "connect to the auctioneer",
			Run: func(args []string) error {
				name := strings.Join(args, " ")
				if name == "" {
					name = to.Name
				}
				if name == "" {
					return errors.New("usage: join <name>")
				}
				return b.Join(ctx, to.Host, to.Port, name)
			},
		},
		{
			Name:  "bid",
			Usage: "<amount>",
			Help:  "place a bid",
			Run: func(args []string) error {
				amount := strings.Join(args, " ")
				if amount == "" {
					return errors.New("usage: bid <amount>")
				}
				if err := b.Bid(amount); err != nil {
					return err
				}
				s.Printf("Your bid: %s (sent)", amount)
				return nil
			},
		},
		{
			Name: "confirm",
			Help: "confirm your final bid when asked",
			Run: func([]string) error {
				if err := b.ConfirmFinal(); err != nil {
					return err
				}
				s.Printf("You confirmed the final bid (sent)")
				return nil
			},
		},
		{
			Name: "leave",
			Help: "disconnect from the auctioneer",
			Run: func([]string) error {
				return b.Disconnect()
			},
		},
		{
			Name: "status",
			Help: "show connection state",
			Run: func([]string) error {
				if !b.Connected() {
					s.Printf("not connected")
					return nil
				}
				msg := "connected to " + to.Host + ":" + strconv.Itoa(to.Port) + " as " + b.Name()
				if b.FinalPending() {
					msg += ", final confirmation requested"
				}
				s.Printf("%s", msg)
				return nil
			},
		},
	}
}

// BidderView prints what the auctioneer sends.  It implements the
// agent's observer.
type BidderView struct {
	Shell *Shell
}

// Notify prints one auctioneer line.
func (v *BidderView) Notify(line string) {
	v.Shell.Printf("%s", Describe(line))
}

// FinalAvailable announces when "confirm" becomes meaningful.
func (v *BidderView) FinalAvailable(on bool) {
	if on {
		v.Shell.Printf("Final confirmation requested. Type 'confirm' if you are the last bidder.")
	}
}

// Describe turns an auctioneer line into a sentence.  Lines it does
// not understand are shown as received.
func Describe(line string) string {
	msg, err := protocol.ParseServer(line)
	if err != nil {
		return "Server: " + line
	}
	switch msg.Kind {
	case protocol.Start:
		return "Auction started: " + msg.Item
	case protocol.Bid:
		return "Bid: " + displayName(msg.Name) + " offers " + msg.Amount
	case protocol.FinalRequest:
		return "Final call: " + displayName(msg.Name) + " at " + msg.Amount
	case protocol.FinalConfirmed:
		return "Sold to " + msg.Name + " at " + msg.Amount
	case protocol.Info:
		return msg.Text
	case protocol.End:
		return "The auctioneer ended the auction."
	}
	return "Server: " + line
}

func displayName(name string) string {
	if name == "" {
		return "(anonymous)"
	}
	return name
}
