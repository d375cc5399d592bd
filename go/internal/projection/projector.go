// Package projection computes a team's salary and roster usage as if every bid it is
// currently winning were to land. It never mutates state.
package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/dynasty-market/go/internal/bidding"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/store"
)

var (
	ErrProjectedCapExceeded = errors.New("projected salary cap exceeded")
	ErrProjectedRosterFull  = errors.New("projected roster full")
)

// Projection is a team's committed plus pending usage
type Projection struct {
	TeamID          uuid.UUID `json:"team_id"`
	CurrentSalary   int64     `json:"current_salary"`
	CurrentCount    int       `json:"current_count"`
	PendingSalary   int64     `json:"pending_salary"`
	PendingCount    int       `json:"pending_count"`
	ProjectedSalary int64     `json:"projected_salary"`
	ProjectedCount  int       `json:"projected_count"`
	SalaryCap       int64     `json:"salary_cap"`
	MaxRosterSize   int       `json:"max_roster_size"`
}

type Projector struct {
	store    store.Store
	settings models.MarketSettings
}

func NewProjector(st store.Store, settings models.MarketSettings) *Projector {
	return &Projector{
		store:    st,
		settings: settings,
	}
}

var _ bidding.Projector = (*Projector)(nil)

// Project returns teamID's projection at now
func (p *Projector) Project(ctx context.Context, teamID uuid.UUID, now time.Time) (Projection, error) {
	var proj Projection
	err := p.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetTeam(ctx, teamID); err != nil {
			return err
		}
		var err error
		proj, err = p.project(ctx, tx, teamID, uuid.Nil, now)
		return err
	})
	if err != nil {
		return Projection{}, fmt.Errorf("failed to project team: %w", err)
	}
	return proj, nil
}

// ProjectedSalary is current salary plus the amounts of bids teamID is winning at now
func (p *Projector) ProjectedSalary(ctx context.Context, teamID uuid.UUID, now time.Time) (int64, error) {
	proj, err := p.Project(ctx, teamID, now)
	if err != nil {
		return 0, err
	}
	return proj.ProjectedSalary, nil
}

// ProjectedCount is current roster size plus the number of bids teamID is winning at now
func (p *Projector) ProjectedCount(ctx context.Context, teamID uuid.UUID, now time.Time) (int, error) {
	proj, err := p.Project(ctx, teamID, now)
	if err != nil {
		return 0, err
	}
	return proj.ProjectedCount, nil
}

// CheckBid rejects a bid that would overcommit teamID if all its winning bids landed.
// The team's own bid on playerID is left out, since the new bid replaces it.
func (p *Projector) CheckBid(ctx context.Context, tx store.Tx, teamID, playerID uuid.UUID, amount int64, now time.Time) error {
	proj, err := p.project(ctx, tx, teamID, playerID, now)
	if err != nil {
		return err
	}
	if proj.ProjectedCount+1 > p.settings.MaxRosterSize {
		return fmt.Errorf("team %s projects %d players: %w", teamID, proj.ProjectedCount, ErrProjectedRosterFull)
	}
	if proj.ProjectedSalary+amount > p.settings.SalaryCap {
		return fmt.Errorf("team %s projects %d plus %d: %w", teamID, proj.ProjectedSalary, amount, ErrProjectedCapExceeded)
	}
	return nil
}

func (p *Projector) project(ctx context.Context, tx store.Tx, teamID, excludePlayer uuid.UUID, now time.Time) (Projection, error) {
	usage, err := tx.TeamUsage(ctx, teamID)
	if err != nil {
		return Projection{}, err
	}
	bids, err := tx.ListBidsByTeam(ctx, teamID)
	if err != nil {
		return Projection{}, err
	}

	proj := Projection{
		TeamID:        teamID,
		CurrentSalary: usage.Salary,
		CurrentCount:  usage.PlayerCount,
		SalaryCap:     p.settings.SalaryCap,
		MaxRosterSize: p.settings.MaxRosterSize,
	}
	for i := range bids {
		bid := &bids[i]
		if bid.IsResolved() || bid.IsExpired(now) || bid.PlayerID == excludePlayer {
			continue
		}
		snapshot, err := tx.ListBidsByPlayer(ctx, bid.PlayerID)
		if err != nil {
			return Projection{}, err
		}
		if bidding.StatusOf(bid, snapshot, now) != models.BidStatusWinning {
			continue
		}
		proj.PendingSalary += bid.Amount
		proj.PendingCount++
	}
	proj.ProjectedSalary = proj.CurrentSalary + proj.PendingSalary
	proj.ProjectedCount = proj.CurrentCount + proj.PendingCount
	return proj, nil
}
