package waiver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/dynasty-market/go/internal/events"
	"github.com/mcdev12/dynasty-market/go/internal/metrics"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/roster"
	"github.com/mcdev12/dynasty-market/go/internal/store"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Outcome describes what a resolution pass did for one waiver
type Outcome string

const (
	OutcomeNoop     Outcome = "noop"
	OutcomeDeferred Outcome = "deferred"
	// OutcomeAwarded means a claimant received the player.
	OutcomeAwarded Outcome = "awarded"
	// OutcomeCleared means nobody could take the player and it returned to free agency.
	OutcomeCleared Outcome = "cleared"
	// OutcomeUnavailable means the player was moved off waivers by an administrator.
	OutcomeUnavailable Outcome = "unavailable"
	// OutcomeFailed means the resolution transaction errored and Err holds why.
	OutcomeFailed Outcome = "failed"
)

// Result is the outcome of resolving one waiver
type Result struct {
	WaiverID uuid.UUID
	PlayerID uuid.UUID
	Outcome  Outcome
	Awarded  *models.WaiverClaim
	Rejected []models.WaiverClaim
	Err      error
}

// Resolver closes waivers whose claim window has passed
type Resolver struct {
	store   store.Store
	ledger  *roster.Ledger
	sink    events.Sink
	metrics *metrics.Market
	workers int
}

// NewResolver creates a waiver Resolver. workers bounds Sweep's parallelism.
func NewResolver(st store.Store, ledger *roster.Ledger, sink events.Sink, m *metrics.Market, workers int) *Resolver {
	if sink == nil {
		sink = events.Discard{}
	}
	if workers <= 0 {
		workers = 1
	}
	return &Resolver{
		store:   st,
		ledger:  ledger,
		sink:    sink,
		metrics: m,
		workers: workers,
	}
}

// Sweep resolves every active waiver whose deadline has passed at now. Failures are
// returned per waiver as OutcomeFailed.
func (r *Resolver) Sweep(ctx context.Context, now time.Time) ([]Result, error) {
	due, err := r.store.DueWaivers(ctx, now, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find due waivers: %w", err)
	}

	results := make([]Result, len(due))
	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, waiverID := range due {
		i, waiverID := i, waiverID
		g.Go(func() error {
			res, err := r.ResolveWaiver(ctx, waiverID, now)
			if err != nil {
				log.Error().Err(err).Str("waiver_id", waiverID.String()).Msg("waiver resolution failed")
				res = Result{WaiverID: waiverID, Outcome: OutcomeFailed, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// ResolveWaiver awards waiverID to the first claimant, in priority order, whose roster
// and cap can take the player. Resolving a waiver twice is a no-op.
func (r *Resolver) ResolveWaiver(ctx context.Context, waiverID uuid.UUID, now time.Time) (Result, error) {
	start := time.Now()

	var (
		res   Result
		batch events.Batch
	)
	err := r.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		res, batch = Result{WaiverID: waiverID}, nil

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
		res.PlayerID = waiver.PlayerID

		if waiver.Status == models.WaiverStatusResolved {
			res.Outcome = OutcomeNoop
			return nil
		}
		if waiver.IsOpen(now) {
			res.Outcome = OutcomeDeferred
			return nil
		}

		all, err := tx.ListClaimsByWaiver(ctx, waiverID)
		if err != nil {
			return err
		}
		claims := make([]models.WaiverClaim, 0, len(all))
		for _, c := range models.ClaimsInPriorityOrder(all) {
			if c.Status == models.ClaimStatusPending {
				claims = append(claims, c)
			}
		}

		if !player.IsOnWaiver(waiverID) {
			res.Outcome = OutcomeUnavailable
			for i := range claims {
				if err := r.reject(ctx, tx, waiver, &claims[i], models.ReasonPlayerUnavailable, now, &batch); err != nil {
					return err
				}
				res.Rejected = append(res.Rejected, claims[i])
			}
			return r.finish(ctx, tx, waiver, nil, models.ReasonPlayerUnavailable, now)
		}

		teams := make([]uuid.UUID, 0, len(claims))
		for _, c := range claims {
			teams = append(teams, c.TeamID)
		}
		if err := tx.LockTeams(ctx, teams...); err != nil {
			return err
		}

		winner := -1
		for i := range claims {
			claim := &claims[i]
			err := r.ledger.Assign(ctx, tx, player, roster.Assignment{
				TeamID:      claim.TeamID,
				Salary:      player.Salary,
				Acquisition: models.AcquisitionTypeWaiver,
				At:          now,
			})
			if err == nil {
				winner = i
				break
			}

			var reason string
			switch {
			case errors.Is(err, roster.ErrRosterFull):
				reason = models.ReasonRosterFull
			case errors.Is(err, roster.ErrCapExceeded):
				reason = models.ReasonCapExceeded
			default:
				return err
			}
			log.Warn().
				Str("waiver_id", waiverID.String()).
				Str("claim_id", claim.ID.String()).
				Str("team_id", claim.TeamID.String()).
				Str("reason", reason).
				Msg("waiver claim voided")
			if err := r.reject(ctx, tx, waiver, claim, reason, now, &batch); err != nil {
				return err
			}
			res.Rejected = append(res.Rejected, *claim)
		}

		if winner < 0 {
			reason := models.ReasonNoClaims
			if len(claims) > 0 {
				reason = models.ReasonNoEligibleClaim
			}
			if err := r.ledger.ReturnToPool(ctx, tx, player, now); err != nil {
				return err
			}
			if err := r.finish(ctx, tx, waiver, nil, reason, now); err != nil {
				return err
			}
			res.Outcome = OutcomeCleared
			batch.Add(events.TypeWaiverCleared, waiverID, now, events.WaiverClearedPayload{
				WaiverID:   waiverID.String(),
				PlayerID:   waiver.PlayerID.String(),
				Reason:     reason,
				ResolvedAt: now,
			}, waiver.OriginTeamID)
			return nil
		}

		won := &claims[winner]
		resolvedAt := now
		won.Status = models.ClaimStatusAwarded
		won.Reason = models.ReasonAwarded
		won.ResolvedAt = &resolvedAt
		if err := tx.UpdateClaim(ctx, won); err != nil {
			return err
		}
		for i := winner + 1; i < len(claims); i++ {
			if err := r.reject(ctx, tx, waiver, &claims[i], models.ReasonOutranked, now, &batch); err != nil {
				return err
			}
			res.Rejected = append(res.Rejected, claims[i])
		}
		if err := r.finish(ctx, tx, waiver, &won.ID, models.ReasonAwarded, now); err != nil {
			return err
		}

		awarded := *won
		res.Outcome = OutcomeAwarded
		res.Awarded = &awarded
		batch.Add(events.TypeWaiverAwarded, waiverID, now, events.WaiverAwardedPayload{
			WaiverID:   waiverID.String(),
			PlayerID:   waiver.PlayerID.String(),
			ClaimID:    won.ID.String(),
			TeamID:     won.TeamID.String(),
			ResolvedAt: now,
		}, won.TeamID, waiver.OriginTeamID)
		return nil
	})
	if err != nil {
		r.metrics.RecordResolution(metrics.KindWaiver, string(OutcomeFailed), time.Since(start))
		return Result{}, fmt.Errorf("failed to resolve waiver %s: %w", waiverID, err)
	}

	if res.Outcome != OutcomeDeferred && res.Outcome != OutcomeNoop {
		ev := log.Info().
			Str("waiver_id", waiverID.String()).
			Str("player_id", res.PlayerID.String()).
			Str("outcome", string(res.Outcome)).
			Int("rejected", len(res.Rejected))
		if res.Awarded != nil {
			ev = ev.Str("team_id", res.Awarded.TeamID.String())
		}
		ev.Msg("waiver resolved")
	}
	r.metrics.RecordResolution(metrics.KindWaiver, string(res.Outcome), time.Since(start))
	r.sink.Publish(ctx, batch...)
	return res, nil
}

func (r *Resolver) reject(ctx context.Context, tx store.Tx, waiver *models.Waiver, claim *models.WaiverClaim, reason string, now time.Time, batch *events.Batch) error {
	at := now
	claim.Status = models.ClaimStatusRejected
	claim.Reason = reason
	claim.ResolvedAt = &at
	if err := tx.UpdateClaim(ctx, claim); err != nil {
		return err
	}
	batch.Add(events.TypeClaimRejected, waiver.ID, now, events.ClaimRejectedPayload{
		ClaimID:  claim.ID.String(),
		WaiverID: waiver.ID.String(),
		PlayerID: waiver.PlayerID.String(),
		TeamID:   claim.TeamID.String(),
		Reason:   reason,
	}, claim.TeamID)
	return nil
}

func (r *Resolver) finish(ctx context.Context, tx store.Tx, waiver *models.Waiver, awarded *uuid.UUID, reason string, now time.Time) error {
	at := now
	outcome := string(OutcomeCleared)
	if awarded != nil {
		outcome = string(OutcomeAwarded)
	} else if reason == models.ReasonPlayerUnavailable {
		outcome = string(OutcomeUnavailable)
	}
	waiver.Status = models.WaiverStatusResolved
	waiver.AwardedClaimID = awarded
	waiver.ResolvedAt = &at
	waiver.Resolution = models.Resolution{Outcome: outcome, Reason: reason}.Encode()
	return tx.UpdateWaiver(ctx, waiver)
}
