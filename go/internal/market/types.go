package market

import (
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/projection"
	"github.com/mcdev12/dynasty-market/go/internal/waiver"
)

type PlaceBidRequest struct {
	TeamID   string `json:"team_id"`
	PlayerID string `json:"player_id"`
	Amount   int64  `json:"amount"`
}

type PlaceBidResponse struct {
	Bid BidView `json:"bid"`
}

type HighestBidRequest struct {
	PlayerID string `json:"player_id"`
}

type HighestBidResponse struct {
	// Bid is nil when no bid on the player is running
	Bid *models.Bid `json:"bid,omitempty"`
}

type ListPlayerBidsRequest struct {
	PlayerID string `json:"player_id"`
}

type ListTeamBidsRequest struct {
	TeamID     string `json:"team_id"`
	ActiveOnly bool   `json:"active_only"`
}

type ListBidsResponse struct {
	Bids []BidView `json:"bids"`
}

// BidView is a bid with its live status and display names
type BidView struct {
	models.Bid
	Status     models.BidStatus `json:"status"`
	PlayerName string           `json:"player_name,omitempty"`
	TeamName   string           `json:"team_name,omitempty"`
}

type PlaceOnWaiversRequest struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`
}

type PlaceOnWaiversResponse struct {
	Waiver models.Waiver `json:"waiver"`
}

type SubmitClaimRequest struct {
	WaiverID string `json:"waiver_id"`
	TeamID   string `json:"team_id"`
	// RequestKey makes retries idempotent; empty is a valid key
	RequestKey string `json:"request_key"`
}

type SubmitClaimResponse struct {
	Claim models.WaiverClaim `json:"claim"`
}

type GetWaiverRequest struct {
	WaiverID string `json:"waiver_id"`
}

type GetWaiverResponse struct {
	Waiver     waiver.WaiverView `json:"waiver"`
	PlayerName string            `json:"player_name,omitempty"`
}

type ListTeamClaimsRequest struct {
	TeamID      string `json:"team_id"`
	PendingOnly bool   `json:"pending_only"`
}

type ListTeamClaimsResponse struct {
	Claims []models.WaiverClaim `json:"claims"`
}

type GetProjectionRequest struct {
	TeamID string `json:"team_id"`
}

type GetProjectionResponse struct {
	Projection projection.Projection `json:"projection"`
}

type GetRosterRequest struct {
	TeamID string `json:"team_id"`
}

type GetRosterResponse struct {
	Players []models.Player    `json:"players"`
	Usage   models.RosterUsage `json:"usage"`
}

type CreateTeamRequest struct {
	Name string `json:"name"`
}

type CreateTeamResponse struct {
	Team models.Team `json:"team"`
}

type CreatePlayerRequest struct {
	FullName string `json:"full_name"`
	Salary   int64  `json:"salary"`
}

type CreatePlayerResponse struct {
	Player models.Player `json:"player"`
}

type AdminAssignRequest struct {
	PlayerID string `json:"player_id"`
	// TeamID empty releases the player to free agency
	TeamID string `json:"team_id,omitempty"`
}

type AdminAssignResponse struct {
	Player models.Player `json:"player"`
}
