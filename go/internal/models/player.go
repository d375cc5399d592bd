package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayerStatus is the lifecycle state of a player in the market.
// Exactly one status holds at any time.
type PlayerStatus string

const (
	PlayerStatusFreeAgent PlayerStatus = "FREE_AGENT"
	PlayerStatusRostered  PlayerStatus = "ROSTERED"
	PlayerStatusOnWaivers PlayerStatus = "ON_WAIVERS"
)

// Player represents a player and where it currently belongs
type Player struct {
	ID       uuid.UUID    `json:"id"`
	FullName string       `json:"full_name"`
	Salary   int64        `json:"salary"`
	Status   PlayerStatus `json:"status"`

	// TeamID is the owning team while ROSTERED and the origin team while ON_WAIVERS.
	TeamID *uuid.UUID `json:"team_id,omitempty"`
	// WaiverID is set only while ON_WAIVERS.
	WaiverID *uuid.UUID `json:"waiver_id,omitempty"`

	AcquiredAt      *time.Time      `json:"acquired_at,omitempty"`
	AcquisitionType AcquisitionType `json:"acquisition_type,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsFreeAgent reports whether the player can be bid on
func (p *Player) IsFreeAgent() bool {
	return p.Status == PlayerStatusFreeAgent
}

// IsRosteredTo reports whether the player is on teamID's roster
func (p *Player) IsRosteredTo(teamID uuid.UUID) bool {
	return p.Status == PlayerStatusRostered && p.TeamID != nil && *p.TeamID == teamID
}

// IsOnWaiver reports whether the player is exposed on the given waiver
func (p *Player) IsOnWaiver(waiverID uuid.UUID) bool {
	return p.Status == PlayerStatusOnWaivers && p.WaiverID != nil && *p.WaiverID == waiverID
}
