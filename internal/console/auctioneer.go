package console

import (
	"errors"
	"strconv"
	"strings"

	"bidmaster/internal/auction"
)

// Auctioneer is what the auctioneer shell drives.
type Auctioneer interface {
	StartAuction(item string) error
	RequestFinal() error
	EndAuction()
	State() auction.State
}

// AuctioneerCommands returns the auctioneer's verbs.  defaultItem is
// used by "start" when no item is given.
func AuctioneerCommands(s *Shell, a Auctioneer, defaultItem string) []Command {
	return []Command{
		{
			Name:  "start",
			Usage: "<item>",
			Help:  "start a round (listening if needed)",
			Run: func(args []string) error {
				item := strings.Join(args, " ")
				if item == "" {
					item = defaultItem
				}
				if item == "" {
					return errors.New("usage: start <item>")
				}
				return a.StartAuction(item)
			},
		},
		{
			Name: "final",
			Help: "ask the last bidder to confirm",
			Run: func([]string) error {
				return a.RequestFinal()
			},
		},
		{
			Name: "end",
			Help: "end the round and disconnect everyone",
			Run: func([]string) error {
				a.EndAuction()
				return nil
			},
		},
		{
			Name: "status",
			Help: "show the current auction state",
			Run: func([]string) error {
				s.Printf("%s", FormatState(a.State()))
				return nil
			},
		},
	}
}

// FormatState renders a state for humans.
func FormatState(st auction.State) string {
	var b strings.Builder
	if st.Running {
		b.WriteString("running")
	} else {
		b.WriteString("stopped")
	}
	if st.Item != "" {
		b.WriteString(", item: " + st.Item)
	}
	if st.HasBid {
		b.WriteString(", last bid: " + displayName(st.LastBidder) + " at " + st.LastAmount)
	} else if st.Item != "" {
		b.WriteString(", no bids yet")
	}
	if st.FinalPending {
		b.WriteString(", awaiting final confirmation")
	}
	b.WriteString(", bidders: ")
	if len(st.Bidders) == 0 {
		b.WriteString("none")
	} else {
		b.WriteString(strings.Join(st.Bidders, ", "))
	}
	if anon := st.Sessions - len(st.Bidders); anon > 0 {
		b.WriteString(" (+" + strconv.Itoa(anon) + " not joined)")
	}
	return b.String()
}
