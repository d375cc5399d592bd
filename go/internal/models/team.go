package models

import (
	"time"

	"github.com/google/uuid"
)

// Team is a league franchise competing for players in the market
type Team struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// RosterUsage is a team's committed salary and player count
type RosterUsage struct {
	TeamID      uuid.UUID `json:"team_id"`
	Salary      int64     `json:"salary"`
	PlayerCount int       `json:"player_count"`
}
