// Package roster is the authoritative record of which player belongs to which team.
// Every change to a team's committed salary or player count goes through the Ledger.
package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/store"
	"github.com/rs/zerolog/log"
)

var (
	ErrRosterFull      = errors.New("roster full")
	ErrCapExceeded     = errors.New("salary cap exceeded")
	ErrAlreadyRostered = errors.New("player already rostered")
	ErrNotRostered     = errors.New("player not rostered to team")
)

// Ledger owns roster assignments and enforces the cap and roster limits at commit time
type Ledger struct {
	store    store.Store
	settings models.MarketSettings
	clock    clockwork.Clock
}

// NewLedger creates a new roster Ledger
func NewLedger(st store.Store, settings models.MarketSettings, clock clockwork.Clock) *Ledger {
	return &Ledger{
		store:    st,
		settings: settings,
		clock:    clock,
	}
}

// Settings returns the league constants the Ledger enforces
func (l *Ledger) Settings() models.MarketSettings {
	return l.settings
}

// Assignment describes a roster move committed by Assign
type Assignment struct {
	TeamID      uuid.UUID
	Salary      int64
	Acquisition models.AcquisitionType
	At          time.Time
}

// Assign puts player on a team's roster at the given contract salary. The caller must hold
// the player lock; Assign takes the team lock itself and re-validates the team's limits.
// The player is updated in place and saved only when every check passes.
func (l *Ledger) Assign(ctx context.Context, tx store.Tx, player *models.Player, a Assignment) error {
	if player.Status == models.PlayerStatusRostered {
		return fmt.Errorf("player %s: %w", player.ID, ErrAlreadyRostered)
	}
	if err := tx.LockTeams(ctx, a.TeamID); err != nil {
		return fmt.Errorf("failed to lock team: %w", err)
	}
	if err := l.CheckCapacity(ctx, tx, a.TeamID, a.Salary); err != nil {
		return err
	}

	teamID := a.TeamID
	at := a.At
	player.Status = models.PlayerStatusRostered
	player.TeamID = &teamID
	player.WaiverID = nil
	player.Salary = a.Salary
	player.AcquiredAt = &at
	player.AcquisitionType = a.Acquisition
	player.UpdatedAt = at
	if err := tx.SavePlayer(ctx, player); err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}

	log.Info().
		Str("player_id", player.ID.String()).
		Str("team_id", teamID.String()).
		Int64("salary", a.Salary).
		Str("acquisition", string(a.Acquisition)).
		Msg("player assigned")
	return nil
}

// CheckCapacity reports whether teamID can absorb one more player at salary
func (l *Ledger) CheckCapacity(ctx context.Context, tx store.Tx, teamID uuid.UUID, salary int64) error {
	usage, err := tx.TeamUsage(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to get team usage: %w", err)
	}
	if usage.PlayerCount >= l.settings.MaxRosterSize {
		return fmt.Errorf("team %s has %d players: %w", teamID, usage.PlayerCount, ErrRosterFull)
	}
	if usage.Salary+salary > l.settings.SalaryCap {
		return fmt.Errorf("team %s at %d plus %d: %w", teamID, usage.Salary, salary, ErrCapExceeded)
	}
	return nil
}

// Release takes player off its team's roster. With a nil waiverID the player becomes a
// free agent; otherwise it is exposed on that waiver and keeps its origin team.
func (l *Ledger) Release(ctx context.Context, tx store.Tx, player *models.Player, teamID uuid.UUID, waiverID *uuid.UUID, at time.Time) error {
	if !player.IsRosteredTo(teamID) {
		return fmt.Errorf("player %s, team %s: %w", player.ID, teamID, ErrNotRostered)
	}
	if err := tx.LockTeams(ctx, teamID); err != nil {
		return fmt.Errorf("failed to lock team: %w", err)
	}

	if waiverID == nil {
		player.Status = models.PlayerStatusFreeAgent
		player.TeamID = nil
	} else {
		id := *waiverID
		player.Status = models.PlayerStatusOnWaivers
		player.WaiverID = &id
	}
	player.AcquiredAt = nil
	player.AcquisitionType = ""
	player.UpdatedAt = at
	if err := tx.SavePlayer(ctx, player); err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}

	log.Info().
		Str("player_id", player.ID.String()).
		Str("team_id", teamID.String()).
		Str("status", string(player.Status)).
		Msg("player released")
	return nil
}

// ReturnToPool makes a player who is not on any roster a free agent again
func (l *Ledger) ReturnToPool(ctx context.Context, tx store.Tx, player *models.Player, at time.Time) error {
	if player.Status == models.PlayerStatusRostered {
		return fmt.Errorf("player %s: %w", player.ID, ErrAlreadyRostered)
	}
	player.Status = models.PlayerStatusFreeAgent
	player.TeamID = nil
	player.WaiverID = nil
	player.UpdatedAt = at
	if err := tx.SavePlayer(ctx, player); err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}

	log.Info().Str("player_id", player.ID.String()).Msg("player returned to free agency")
	return nil
}

// CurrentSalary returns the sum of rostered salaries for teamID
func (l *Ledger) CurrentSalary(ctx context.Context, teamID uuid.UUID) (int64, error) {
	usage, err := l.Usage(ctx, teamID)
	if err != nil {
		return 0, err
	}
	return usage.Salary, nil
}

// CurrentCount returns the number of players rostered to teamID
func (l *Ledger) CurrentCount(ctx context.Context, teamID uuid.UUID) (int, error) {
	usage, err := l.Usage(ctx, teamID)
	if err != nil {
		return 0, err
	}
	return usage.PlayerCount, nil
}

// Usage returns teamID's committed salary and player count
func (l *Ledger) Usage(ctx context.Context, teamID uuid.UUID) (models.RosterUsage, error) {
	var usage models.RosterUsage
	err := l.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetTeam(ctx, teamID); err != nil {
			return err
		}
		var err error
		usage, err = tx.TeamUsage(ctx, teamID)
		return err
	})
	if err != nil {
		return models.RosterUsage{}, fmt.Errorf("failed to get roster usage: %w", err)
	}
	return usage, nil
}

// Roster lists the players on teamID's roster
func (l *Ledger) Roster(ctx context.Context, teamID uuid.UUID) ([]models.Player, error) {
	var players []models.Player
	err := l.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetTeam(ctx, teamID); err != nil {
			return err
		}
		var err error
		players, err = tx.ListRosterPlayers(ctx, teamID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get roster: %w", err)
	}
	return players, nil
}

// CreateTeam registers a new team
func (l *Ledger) CreateTeam(ctx context.Context, name string) (*models.Team, error) {
	if name == "" {
		return nil, fmt.Errorf("team name is required")
	}
	team := &models.Team{ID: uuid.New(), Name: name, CreatedAt: l.clock.Now()}
	err := l.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertTeam(ctx, team)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, nil
}

// CreatePlayer registers a new free agent with a nominal salary
func (l *Ledger) CreatePlayer(ctx context.Context, fullName string, salary int64) (*models.Player, error) {
	if fullName == "" {
		return nil, fmt.Errorf("player name is required")
	}
	if salary < 0 {
		return nil, fmt.Errorf("salary must not be negative")
	}
	player := &models.Player{
		ID:        uuid.New(),
		FullName:  fullName,
		Salary:    salary,
		Status:    models.PlayerStatusFreeAgent,
		UpdatedAt: l.clock.Now(),
	}
	err := l.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertPlayer(ctx, player)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

// AdminAssign moves a player by league decree. A nil teamID releases the player to free
// agency. Pending bids or waivers on the player are left for the resolvers to void.
func (l *Ledger) AdminAssign(ctx context.Context, playerID uuid.UUID, teamID *uuid.UUID) (*models.Player, error) {
	var player *models.Player
	err := l.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.LockPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		now := l.clock.Now()

		teams := make([]uuid.UUID, 0, 2)
		if p.TeamID != nil && p.Status == models.PlayerStatusRostered {
			teams = append(teams, *p.TeamID)
		}
		if teamID != nil {
			teams = append(teams, *teamID)
		}
		if err := tx.LockTeams(ctx, teams...); err != nil {
			return err
		}

		if p.Status == models.PlayerStatusRostered {
			if teamID != nil && p.IsRosteredTo(*teamID) {
				player = p
				return nil
			}
			if err := l.Release(ctx, tx, p, *p.TeamID, nil, now); err != nil {
				return err
			}
		}
		if teamID == nil {
			if err := l.ReturnToPool(ctx, tx, p, now); err != nil {
				return err
			}
			player = p
			return nil
		}
		if err := l.Assign(ctx, tx, p, Assignment{
			TeamID:      *teamID,
			Salary:      p.Salary,
			Acquisition: models.AcquisitionTypeAdmin,
			At:          now,
		}); err != nil {
			return err
		}
		player = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reassign player: %w", err)
	}
	return player, nil
}
