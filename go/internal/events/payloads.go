package events

import (
	"time"
)

// Event payload types shared between the market components, the outbox and the gateway

// BidPlacedPayload is the payload for a BidPlaced event
type BidPlacedPayload struct {
	BidID     string    `json:"bid_id"`
	PlayerID  string    `json:"player_id"`
	TeamID    string    `json:"team_id"`
	Amount    int64     `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BidOutbidPayload is the payload for a BidOutbid event, sent to the team that lost the lead
type BidOutbidPayload struct {
	BidID     string `json:"bid_id"`
	PlayerID  string `json:"player_id"`
	TeamID    string `json:"team_id"`
	Amount    int64  `json:"amount"`
	TopAmount int64  `json:"top_amount"`
}

// BidWonPayload is the payload for a BidWon event
type BidWonPayload struct {
	BidID      string    `json:"bid_id"`
	PlayerID   string    `json:"player_id"`
	TeamID     string    `json:"team_id"`
	Amount     int64     `json:"amount"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// BidLostPayload is the payload for a BidLost event
type BidLostPayload struct {
	BidID      string    `json:"bid_id"`
	PlayerID   string    `json:"player_id"`
	TeamID     string    `json:"team_id"`
	Amount     int64     `json:"amount"`
	Reason     string    `json:"reason"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// AuctionUnresolvedPayload is the payload for an AuctionUnresolved event
type AuctionUnresolvedPayload struct {
	PlayerID   string    `json:"player_id"`
	Reason     string    `json:"reason"`
	BidCount   int       `json:"bid_count"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// WaiverPlacedPayload is the payload for a WaiverPlaced event
type WaiverPlacedPayload struct {
	WaiverID      string    `json:"waiver_id"`
	PlayerID      string    `json:"player_id"`
	OriginTeamID  string    `json:"origin_team_id"`
	PlacedAt      time.Time `json:"placed_at"`
	ClaimDeadline time.Time `json:"claim_deadline"`
}

// ClaimSubmittedPayload is the payload for a ClaimSubmitted event
type ClaimSubmittedPayload struct {
	ClaimID     string    `json:"claim_id"`
	WaiverID    string    `json:"waiver_id"`
	PlayerID    string    `json:"player_id"`
	TeamID      string    `json:"team_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// WaiverAwardedPayload is the payload for a WaiverAwarded event
type WaiverAwardedPayload struct {
	WaiverID   string    `json:"waiver_id"`
	PlayerID   string    `json:"player_id"`
	ClaimID    string    `json:"claim_id"`
	TeamID     string    `json:"team_id"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// WaiverClearedPayload is the payload for a WaiverCleared event
type WaiverClearedPayload struct {
	WaiverID   string    `json:"waiver_id"`
	PlayerID   string    `json:"player_id"`
	Reason     string    `json:"reason"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// ClaimRejectedPayload is the payload for a ClaimRejected event
type ClaimRejectedPayload struct {
	ClaimID  string `json:"claim_id"`
	WaiverID string `json:"waiver_id"`
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`
	Reason   string `json:"reason"`
}
