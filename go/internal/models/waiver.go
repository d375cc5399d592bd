package models

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// WaiverStatus represents the state of a waiver
type WaiverStatus string

const (
	WaiverStatusActive   WaiverStatus = "ACTIVE"
	WaiverStatusResolved WaiverStatus = "RESOLVED"
)

// Waiver is the exposure window of a dropped player
type Waiver struct {
	ID             uuid.UUID       `json:"id"`
	PlayerID       uuid.UUID       `json:"player_id"`
	OriginTeamID   uuid.UUID       `json:"origin_team_id"`
	PlacedAt       time.Time       `json:"placed_at"`
	ClaimDeadline  time.Time       `json:"claim_deadline"`
	Status         WaiverStatus    `json:"status"`
	AwardedClaimID *uuid.UUID      `json:"awarded_claim_id,omitempty"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
	Resolution     json.RawMessage `json:"resolution,omitempty"`
}

// IsOpen reports whether claims are still accepted at now
func (w *Waiver) IsOpen(now time.Time) bool {
	return w.Status == WaiverStatusActive && now.Before(w.ClaimDeadline)
}

// ClaimStatus represents the state of a waiver claim
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "PENDING"
	ClaimStatusAwarded  ClaimStatus = "AWARDED"
	ClaimStatusRejected ClaimStatus = "REJECTED"
)

// WaiverClaim is a team's request to take a player off waivers
type WaiverClaim struct {
	ID          uuid.UUID `json:"id"`
	WaiverID    uuid.UUID `json:"waiver_id"`
	TeamID      uuid.UUID `json:"team_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	// RequestKey is the caller's idempotency key; a resubmission with the same key
	// returns the original claim.
	RequestKey string      `json:"request_key,omitempty"`
	Status     ClaimStatus `json:"status"`
	Reason     string      `json:"reason,omitempty"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
}

// ClaimsInPriorityOrder sorts claims earliest submission first, ties by id.
// This is the league's waiver priority policy.
func ClaimsInPriorityOrder(claims []WaiverClaim) []WaiverClaim {
	out := make([]WaiverClaim, len(claims))
	copy(out, claims)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
