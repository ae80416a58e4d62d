// Package protocol encodes and decodes the auction wire format:
// newline-terminated UTF-8 lines whose fields are separated by '|'.
//
//	JOIN|<name>                              bidder → auctioneer
//	BID|<name>|<amount>                      bidder → auctioneer, auctioneer → all
//	FINAL_CONFIRM|<name>                     bidder → auctioneer
//	START|<item>                             auctioneer → all
//	FINAL_REQUEST|<name>|<amount>            auctioneer → all
//	BIDMASTER|FINAL_CONFIRMED|<name>|<amount> auctioneer → all
//	BIDMASTER|INFO|<text>                    auctioneer → all
//	END                                      auctioneer → all
//
// Amounts are opaque text.  Nothing here parses or compares them.
package protocol

import (
	"fmt"
	"strings"

	ncerr "bidmaster/internal/errors"
)

// Sep separates fields within a line.
const Sep = "|"

// Kind identifies a message type.
type Kind int

const (
	Unknown Kind = iota
	Join
	Bid
	FinalConfirm
	Start
	FinalRequest
	FinalConfirmed
	Info
	End
)

var kindNames = [...]string{
	Unknown:        "UNKNOWN",
	Join:           "JOIN",
	Bid:            "BID",
	FinalConfirm:   "FINAL_CONFIRM",
	Start:          "START",
	FinalRequest:   "FINAL_REQUEST",
	FinalConfirmed: "BIDMASTER|FINAL_CONFIRMED",
	Info:           "BIDMASTER|INFO",
	End:            "END",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "UNKNOWN"
	}
	return kindNames[k]
}

// Message is one decoded line.  Only the fields meaningful for Kind are
// set; Raw always holds the line as received.
type Message struct {
	Kind   Kind
	Name   string
	Amount string
	Item   string
	Text   string
	Raw    string
}

// ── Decoding ─────────────────────────────────────────────────────────

// ParseClient decodes a line sent by a bidder.  A line with an unknown
// keyword returns a Message of Kind Unknown and a ProtocolError; a known
// keyword with the wrong field count or an empty field returns only the
// error.
func ParseClient(line string) (Message, error) {
	fields := strings.Split(line, Sep)
	msg := Message{Raw: line}

	switch fields[0] {
	case "JOIN":
		if err := expect(line, Join, fields, 2); err != nil {
			return msg, err
		}
		msg.Kind, msg.Name = Join, fields[1]
	case "BID":
		if err := expect(line, Bid, fields, 3); err != nil {
			return msg, err
		}
		msg.Kind, msg.Name, msg.Amount = Bid, fields[1], fields[2]
	case "FINAL_CONFIRM":
		if err := expect(line, FinalConfirm, fields, 2); err != nil {
			return msg, err
		}
		msg.Kind, msg.Name = FinalConfirm, fields[1]
	default:
		return msg, ncerr.Malformed(line, fmt.Sprintf("unknown message kind %q", fields[0]))
	}
	return msg, nil
}

// ParseServer decodes a line broadcast by the auctioneer.  INFO text
// may itself contain the separator; every other kind has a fixed field
// count.
func ParseServer(line string) (Message, error) {
	fields := strings.Split(line, Sep)
	msg := Message{Raw: line}

	switch fields[0] {
	case "START":
		if err := expect(line, Start, fields, 2); err != nil {
			return msg, err
		}
		msg.Kind, msg.Item = Start, fields[1]
	case "BID":
		if err := expect(line, Bid, fields, 3); err != nil {
			return msg, err
		}
		msg.Kind, msg.Name, msg.Amount = Bid, fields[1], fields[2]
	case "FINAL_REQUEST":
		if err := expect(line, FinalRequest, fields, 3); err != nil {
			return msg, err
		}
		msg.Kind, msg.Name, msg.Amount = FinalRequest, fields[1], fields[2]
	case "END":
		if len(fields) != 1 {
			return msg, ncerr.Malformed(line, fmt.Sprintf("END expects 1 field, got %d", len(fields)))
		}
		msg.Kind = End
	case "BIDMASTER":
		if len(fields) < 2 {
			return msg, ncerr.Malformed(line, "BIDMASTER without a subkind")
		}
		switch fields[1] {
		case "FINAL_CONFIRMED":
			if len(fields) != 4 {
				return msg, ncerr.Malformed(line, fmt.Sprintf("%s expects 4 fields, got %d", FinalConfirmed, len(fields)))
			}
			msg.Kind, msg.Name, msg.Amount = FinalConfirmed, fields[2], fields[3]
		case "INFO":
			msg.Kind = Info
			msg.Text = strings.Join(fields[2:], Sep)
		default:
			return msg, ncerr.Malformed(line, fmt.Sprintf("unknown BIDMASTER subkind %q", fields[1]))
		}
	default:
		return msg, ncerr.Malformed(line, fmt.Sprintf("unknown message kind %q", fields[0]))
	}
	return msg, nil
}

// expect checks the field count and rejects empty fields.
func expect(line string, k Kind, fields []string, n int) error {
	if len(fields) != n {
		return ncerr.Malformed(line, fmt.Sprintf("%s expects %d fields, got %d", k, n, len(fields)))
	}
	for _, f := range fields[1:] {
		if f == "" {
			return ncerr.Malformed(line, fmt.Sprintf("%s has an empty field", k))
		}
	}
	return nil
}

// ── Encoding ─────────────────────────────────────────────────────────

// ValidField reports whether s can travel as a single field: non-empty,
// with no separator and no line break.
func ValidField(s string) bool {
	return s != "" && !strings.ContainsAny(s, Sep+"\r\n")
}

func JoinLine(name string) string { return "JOIN" + Sep + name }

func BidLine(name, amount string) string { return "BID" + Sep + name + Sep + amount }

func FinalConfirmLine(name string) string { return "FINAL_CONFIRM" + Sep + name }

func StartLine(item string) string { return "START" + Sep + item }

func FinalRequestLine(name, amount string) string {
	return "FINAL_REQUEST" + Sep + name + Sep + amount
}

func FinalConfirmedLine(name, amount string) string {
	return "BIDMASTER" + Sep + "FINAL_CONFIRMED" + Sep + name + Sep + amount
}

func InfoLine(text string) string { return "BIDMASTER" + Sep + "INFO" + Sep + text }

// EndLine is the round terminator.
const EndLine = "END"
