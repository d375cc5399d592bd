package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BidStatus is the status of a bid as seen at a point in time.
// Only WON and LOST are ever stored (as the bid's Outcome); the rest are derived.
type BidStatus string

const (
	BidStatusWinning BidStatus = "WINNING"
	BidStatusOutbid  BidStatus = "OUTBID"
	BidStatusWon     BidStatus = "WON"
	BidStatusLost    BidStatus = "LOST"
)

// Bid is a team's monetary offer for a free agent
type Bid struct {
	ID        uuid.UUID `json:"id"`
	PlayerID  uuid.UUID `json:"player_id"`
	TeamID    uuid.UUID `json:"team_id"`
	Amount    int64     `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// Outcome is empty until the auction resolver commits WON or LOST.
	Outcome    BidStatus       `json:"outcome,omitempty"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
	Resolution json.RawMessage `json:"resolution,omitempty"`
}

// IsResolved reports whether the resolver has already closed the bid
func (b *Bid) IsResolved() bool {
	return b.Outcome != ""
}

// IsExpired reports whether the bid's countdown has run out at now
func (b *Bid) IsExpired(now time.Time) bool {
	return !now.Before(b.ExpiresAt)
}

// Outranks reports whether b beats other: higher amount, then earlier placement, then lower id
func (b *Bid) Outranks(other *Bid) bool {
	if b.Amount != other.Amount {
		return b.Amount > other.Amount
	}
	if !b.PlacedAt.Equal(other.PlacedAt) {
		return b.PlacedAt.Before(other.PlacedAt)
	}
	return b.ID.String() < other.ID.String()
}

// Resolution is the reporting record attached to a resolved bid or waiver
type Resolution struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// Resolution reasons
const (
	ReasonOutranked         = "outranked"
	ReasonRosterFull        = "roster_full"
	ReasonCapExceeded       = "cap_exceeded"
	ReasonPlayerUnavailable = "player_unavailable"
	ReasonAwarded           = "awarded"
	ReasonNoClaims          = "no_claims"
	ReasonNoEligibleClaim   = "no_eligible_claim"
	ReasonNoEligibleBid     = "no_eligible_bid"
)

// Encode returns the resolution as a JSON document
func (r Resolution) Encode() json.RawMessage {
	data, _ := json.Marshal(r)
	return data
}
