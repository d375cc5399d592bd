// Package waiver runs the waiver wire: dropped players are exposed for a fixed window,
// other teams file claims, and the Resolver hands the player to one claimant or back
// to free agency once the window closes.
package waiver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/dynasty-market/go/internal/events"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/roster"
	"github.com/mcdev12/dynasty-market/go/internal/store"
	"github.com/rs/zerolog/log"
)

var (
	ErrWaiverClosed   = errors.New("waiver closed")
	ErrAlreadyClaimed = errors.New("team already has a claim on this waiver")
	ErrOwnPlayer      = errors.New("team cannot claim its own waived player")
	ErrNotOnRoster    = errors.New("player not on team's roster")
)

// Waker is told when a new deadline may have been created
type Waker interface {
	Wake()
}

// Queue places players on waivers and records claims
type Queue struct {
	store  store.Store
	ledger *roster.Ledger
	window time.Duration
	sink   events.Sink
	waker  Waker
}

// NewQueue creates a waiver Queue. waker may be nil.
func NewQueue(st store.Store, ledger *roster.Ledger, window time.Duration, sink events.Sink, waker Waker) *Queue {
	if sink == nil {
		sink = events.Discard{}
	}
	return &Queue{
		store:  st,
		ledger: ledger,
		window: window,
		sink:   sink,
		waker:  waker,
	}
}

// PlaceOnWaivers drops playerID from originTeam's roster and exposes it until now plus
// the waiver window
func (q *Queue) PlaceOnWaivers(ctx context.Context, playerID, originTeam uuid.UUID, now time.Time) (*models.Waiver, error) {
	var (
		waiver *models.Waiver
		batch  events.Batch
	)
	err := q.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		waiver, batch = nil, nil

		player, err := tx.LockPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		if _, err := tx.GetTeam(ctx, originTeam); err != nil {
			return err
		}
		if !player.IsRosteredTo(originTeam) {
			return fmt.Errorf("player %s, team %s: %w", playerID, originTeam, ErrNotOnRoster)
		}

		// bids left over from before an administrative move must not outlive the drop
		bids, err := tx.ListBidsByPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		for _, bid := range store.UnresolvedBids(bids) {
			at := now
			bid.Outcome = models.BidStatusLost
			bid.ResolvedAt = &at
			bid.Resolution = models.Resolution{Outcome: string(models.BidStatusLost), Reason: models.ReasonPlayerUnavailable}.Encode()
			if err := tx.UpdateBid(ctx, &bid); err != nil {
				return err
			}
		}

		waiver = &models.Waiver{
			ID:            uuid.New(),
			PlayerID:      playerID,
			OriginTeamID:  originTeam,
			PlacedAt:      now,
			ClaimDeadline: now.Add(q.window),
			Status:        models.WaiverStatusActive,
		}
		if err := tx.InsertWaiver(ctx, waiver); err != nil {
			return err
		}
		if err := q.ledger.Release(ctx, tx, player, originTeam, &waiver.ID, now); err != nil {
			return err
		}

		batch.Add(events.TypeWaiverPlaced, waiver.ID, now, events.WaiverPlacedPayload{
			WaiverID:      waiver.ID.String(),
			PlayerID:      playerID.String(),
			OriginTeamID:  originTeam.String(),
			PlacedAt:      now,
			ClaimDeadline: waiver.ClaimDeadline,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to place player on waivers: %w", err)
	}

	log.Info().
		Str("waiver_id", waiver.ID.String()).
		Str("player_id", playerID.String()).
		Str("team_id", originTeam.String()).
		Time("claim_deadline", waiver.ClaimDeadline).
		Msg("player placed on waivers")

	q.sink.Publish(ctx, batch...)
	if q.waker != nil {
		q.waker.Wake()
	}
	return waiver, nil
}

// SubmitClaim files claimingTeam's claim on waiverID. Resubmitting with the same request
// key returns the existing claim; a different key fails with ErrAlreadyClaimed. A team
// whose roster or cap cannot take the player right now is turned away with the
// Ledger's capacity errors; the resolver re-checks at the deadline.
func (q *Queue) SubmitClaim(ctx context.Context, waiverID, claimingTeam uuid.UUID, requestKey string, now time.Time) (*models.WaiverClaim, error) {
	var (
		claim   *models.WaiverClaim
		batch   events.Batch
		created bool
	)
	err := q.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		claim, batch, created = nil, nil, false

		// the player lock comes before the waiver lock, so look up the player first
		peek, err := tx.GetWaiver(ctx, waiverID)
		if err != nil {
			return err
		}
		player, err := tx.LockPlayer(ctx, peek.PlayerID)
		if err != nil {
			return err
		}
		waiver, err := tx.LockWaiver(ctx, waiverID)
		if err != nil {
			return err
		}
		if _, err := tx.GetTeam(ctx, claimingTeam); err != nil {
			return err
		}
		if waiver.OriginTeamID == claimingTeam {
			return ErrOwnPlayer
		}

		existing, err := tx.ListClaimsByWaiver(ctx, waiverID)
		if err != nil {
			return err
		}
		for i := range existing {
			if existing[i].TeamID != claimingTeam {
				continue
			}
			if existing[i].RequestKey == requestKey {
				claim = &existing[i]
				return nil
			}
			return fmt.Errorf("claim %s: %w", existing[i].ID, ErrAlreadyClaimed)
		}

		if !waiver.IsOpen(now) {
			return fmt.Errorf("waiver %s deadline %s: %w", waiverID, waiver.ClaimDeadline.Format(time.RFC3339), ErrWaiverClosed)
		}
		// an administrator may have moved the player while the window was open
		if !player.IsOnWaiver(waiverID) {
			return fmt.Errorf("player %s is %s: %w", player.ID, player.Status, ErrWaiverClosed)
		}
		if err := q.ledger.CheckCapacity(ctx, tx, claimingTeam, player.Salary); err != nil {
			return err
		}

		claim = &models.WaiverClaim{
			ID:          uuid.New(),
			WaiverID:    waiverID,
			TeamID:      claimingTeam,
			SubmittedAt: now,
			RequestKey:  requestKey,
			Status:      models.ClaimStatusPending,
		}
		if err := tx.InsertClaim(ctx, claim); err != nil {
			return err
		}
		created = true
		batch.Add(events.TypeClaimSubmitted, waiverID, now, events.ClaimSubmittedPayload{
			ClaimID:     claim.ID.String(),
			WaiverID:    waiverID.String(),
			PlayerID:    waiver.PlayerID.String(),
			TeamID:      claimingTeam.String(),
			SubmittedAt: now,
		}, claimingTeam)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit claim: %w", err)
	}

	if created {
		log.Info().
			Str("claim_id", claim.ID.String()).
			Str("waiver_id", waiverID.String()).
			Str("team_id", claimingTeam.String()).
			Msg("waiver claim submitted")
	}
	q.sink.Publish(ctx, batch...)
	return claim, nil
}

// WaiverView is a waiver with every claim filed on it
type WaiverView struct {
	models.Waiver
	Claims []models.WaiverClaim `json:"claims"`
}

// GetWaiver returns a waiver and its claims in priority order
func (q *Queue) GetWaiver(ctx context.Context, waiverID uuid.UUID) (*WaiverView, error) {
	var view *WaiverView
	err := q.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		w, err := tx.GetWaiver(ctx, waiverID)
		if err != nil {
			return err
		}
		claims, err := tx.ListClaimsByWaiver(ctx, waiverID)
		if err != nil {
			return err
		}
		view = &WaiverView{Waiver: *w, Claims: claims}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get waiver: %w", err)
	}
	return view, nil
}

// TeamClaims lists teamID's claims. With pendingOnly set, decided claims are left out.
func (q *Queue) TeamClaims(ctx context.Context, teamID uuid.UUID, pendingOnly bool) ([]models.WaiverClaim, error) {
	var claims []models.WaiverClaim
	err := q.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		claims = nil
		if _, err := tx.GetTeam(ctx, teamID); err != nil {
			return err
		}
		all, err := tx.ListClaimsByTeam(ctx, teamID)
		if err != nil {
			return err
		}
		for _, c := range all {
			if pendingOnly && c.Status != models.ClaimStatusPending {
				continue
			}
			claims = append(claims, c)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list team claims: %w", err)
	}
	return claims, nil
}
