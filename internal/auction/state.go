package auction

import "encoding/json"

// State is a point-in-time view of the auction.
type State struct {
	Item         string   `json:"item"`
	LastBidder   string   `json:"last_bidder,omitempty"`
	LastAmount   string   `json:"last_amount,omitempty"`
	HasBid       bool     `json:"has_bid"`
	FinalPending bool     `json:"final_pending"`
	Running      bool     `json:"running"`
	Sessions     int      `json:"sessions"`
	Bidders      []string `json:"bidders,omitempty"`
}

// JSON returns the state as indented JSON.
func (s State) JSON() string {
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
