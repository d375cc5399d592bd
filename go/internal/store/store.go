// Package store is the market's persistence API. It offers transactional access to
// teams, players, bids, waivers and waiver claims, with per-entity row locks.
//
// Lock order inside a transaction is always player, then waiver, then teams in
// ascending id order (LockTeams sorts for the caller).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/dynasty-market/go/internal/models"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// Tx is one unit of work. Lock* methods block until no other transaction holds the
// same entity and keep it locked until the transaction ends.
type Tx interface {
	InsertTeam(ctx context.Context, team *models.Team) error
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	LockTeams(ctx context.Context, ids ...uuid.UUID) error
	TeamUsage(ctx context.Context, teamID uuid.UUID) (models.RosterUsage, error)
	ListRosterPlayers(ctx context.Context, teamID uuid.UUID) ([]models.Player, error)

	InsertPlayer(ctx context.Context, player *models.Player) error
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	LockPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	SavePlayer(ctx context.Context, player *models.Player) error

	InsertBid(ctx context.Context, bid *models.Bid) error
	UpdateBid(ctx context.Context, bid *models.Bid) error
	ListBidsByPlayer(ctx context.Context, playerID uuid.UUID) ([]models.Bid, error)
	ListBidsByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Bid, error)

	InsertWaiver(ctx context.Context, waiver *models.Waiver) error
	GetWaiver(ctx context.Context, id uuid.UUID) (*models.Waiver, error)
	LockWaiver(ctx context.Context, id uuid.UUID) (*models.Waiver, error)
	UpdateWaiver(ctx context.Context, waiver *models.Waiver) error

	InsertClaim(ctx context.Context, claim *models.WaiverClaim) error
	UpdateClaim(ctx context.Context, claim *models.WaiverClaim) error
	ListClaimsByWaiver(ctx context.Context, waiverID uuid.UUID) ([]models.WaiverClaim, error)
	ListClaimsByTeam(ctx context.Context, teamID uuid.UUID) ([]models.WaiverClaim, error)
}

// Store opens transactions and answers the scheduler's deadline queries
type Store interface {
	// InTx runs fn in a transaction, committing when fn returns nil.
	// fn may be invoked more than once if the transaction is retried.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// DuePlayers returns players with open bids that have all expired at now,
	// earliest closing first.
	DuePlayers(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	// DueWaivers returns active waivers whose claim deadline has passed at now.
	DueWaivers(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	// NextDeadline returns the earliest moment something becomes due, or nil.
	NextDeadline(ctx context.Context) (*time.Time, error)
}

// UnresolvedBids filters bids down to those still awaiting resolution
func UnresolvedBids(bids []models.Bid) []models.Bid {
	out := make([]models.Bid, 0, len(bids))
	for _, b := range bids {
		if !b.IsResolved() {
			out = append(out, b)
		}
	}
	return out
}
