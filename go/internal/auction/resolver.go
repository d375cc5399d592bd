// Package auction resolves closed free-agent auctions. Each player is resolved in its own
// transaction under the player's row lock, so unrelated players resolve in parallel and
// a sweep can never race a bid placement or another sweep on the same player.
package auction

import (
	"context"
	"errors"
	"fmt"
	"sort"
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

// Outcome describes what a resolution pass did for one player
type Outcome string

const (
	// OutcomeNoop means there was nothing left to resolve.
	OutcomeNoop Outcome = "noop"
	// OutcomeDeferred means a bid is still running, so the auction stays open.
	OutcomeDeferred Outcome = "deferred"
	// OutcomeAwarded means a bid won and the player was rostered.
	OutcomeAwarded Outcome = "awarded"
	// OutcomeUnresolved means every bidder failed the roster or cap check.
	OutcomeUnresolved Outcome = "unresolved"
	// OutcomeUnavailable means the player left free agency while bids were pending.
	OutcomeUnavailable Outcome = "unavailable"
	// OutcomeFailed means the resolution transaction errored; the player stays due.
	OutcomeFailed Outcome = "failed"
)

// Result is the outcome of resolving one player
type Result struct {
	PlayerID uuid.UUID
	Outcome  Outcome
	Winner   *models.Bid
	// Voided are the bids that would have won but failed the Ledger's checks, in rank order.
	Voided []models.Bid
	// Err is set when Outcome is OutcomeFailed.
	Err error
}

// Resolver commits auction winners into the roster Ledger
type Resolver struct {
	store   store.Store
	ledger  *roster.Ledger
	sink    events.Sink
	metrics *metrics.Market
	workers int
}

// NewResolver creates an auction Resolver. workers bounds Sweep's parallelism.
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

// Sweep resolves every player whose auction has closed at now. A player whose
// transaction fails is reported as OutcomeFailed and does not stop the others; the
// returned error covers only the due-player query.
func (r *Resolver) Sweep(ctx context.Context, now time.Time) ([]Result, error) {
	due, err := r.store.DuePlayers(ctx, now, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find due players: %w", err)
	}

	results := make([]Result, len(due))
	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, playerID := range due {
		i, playerID := i, playerID
		g.Go(func() error {
			res, err := r.ResolvePlayer(ctx, playerID, now)
			if err != nil {
				log.Error().Err(err).Str("player_id", playerID.String()).Msg("player resolution failed")
				res = Result{PlayerID: playerID, Outcome: OutcomeFailed, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// ResolvePlayer closes playerID's auction if every bid on it has expired at now.
// Re-running it on an already resolved player is a no-op.
func (r *Resolver) ResolvePlayer(ctx context.Context, playerID uuid.UUID, now time.Time) (Result, error) {
	start := time.Now()

	var (
		res   Result
		batch events.Batch
	)
	err := r.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		res, batch = Result{PlayerID: playerID}, nil

		player, err := tx.LockPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		bids, err := tx.ListBidsByPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		open := store.UnresolvedBids(bids)
		if len(open) == 0 {
			res.Outcome = OutcomeNoop
			return nil
		}
		for i := range open {
			if !open[i].IsExpired(now) {
				res.Outcome = OutcomeDeferred
				return nil
			}
		}

		sort.Slice(open, func(i, j int) bool { return open[i].Outranks(&open[j]) })

		if !player.IsFreeAgent() {
			res.Outcome = OutcomeUnavailable
			for i := range open {
				if err := r.close(ctx, tx, &open[i], models.BidStatusLost, models.ReasonPlayerUnavailable, now, &batch); err != nil {
					return err
				}
			}
			return nil
		}

		teams := make([]uuid.UUID, 0, len(open))
		for _, b := range open {
			teams = append(teams, b.TeamID)
		}
		if err := tx.LockTeams(ctx, teams...); err != nil {
			return err
		}

		winner := -1
		for i := range open {
			bid := &open[i]
			err := r.ledger.Assign(ctx, tx, player, roster.Assignment{
				TeamID:      bid.TeamID,
				Salary:      bid.Amount,
				Acquisition: models.AcquisitionTypeFreeAgent,
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
				Str("player_id", playerID.String()).
				Str("bid_id", bid.ID.String()).
				Str("team_id", bid.TeamID.String()).
				Str("reason", reason).
				Msg("winning bid voided")
			if err := r.close(ctx, tx, bid, models.BidStatusLost, reason, now, &batch); err != nil {
				return err
			}
			res.Voided = append(res.Voided, *bid)
		}

		if winner < 0 {
			res.Outcome = OutcomeUnresolved
			batch.Add(events.TypeAuctionUnresolved, playerID, now, events.AuctionUnresolvedPayload{
				PlayerID:   playerID.String(),
				Reason:     models.ReasonNoEligibleBid,
				BidCount:   len(open),
				ResolvedAt: now,
			})
			return nil
		}

		if err := r.close(ctx, tx, &open[winner], models.BidStatusWon, models.ReasonAwarded, now, &batch); err != nil {
			return err
		}
		for i := winner + 1; i < len(open); i++ {
			if err := r.close(ctx, tx, &open[i], models.BidStatusLost, models.ReasonOutranked, now, &batch); err != nil {
				return err
			}
		}
		won := open[winner]
		res.Outcome = OutcomeAwarded
		res.Winner = &won
		return nil
	})
	if err != nil {
		r.metrics.RecordResolution(metrics.KindAuction, string(OutcomeFailed), time.Since(start))
		return Result{}, fmt.Errorf("failed to resolve player %s: %w", playerID, err)
	}

	if res.Outcome != OutcomeDeferred && res.Outcome != OutcomeNoop {
		ev := log.Info().
			Str("player_id", playerID.String()).
			Str("outcome", string(res.Outcome)).
			Int("voided", len(res.Voided))
		if res.Winner != nil {
			ev = ev.Str("team_id", res.Winner.TeamID.String()).Int64("amount", res.Winner.Amount)
		}
		ev.Msg("auction resolved")
	}
	r.metrics.RecordResolution(metrics.KindAuction, string(res.Outcome), time.Since(start))
	r.sink.Publish(ctx, batch...)
	return res, nil
}

func (r *Resolver) close(ctx context.Context, tx store.Tx, bid *models.Bid, outcome models.BidStatus, reason string, now time.Time, batch *events.Batch) error {
	at := now
	bid.Outcome = outcome
	bid.ResolvedAt = &at
	bid.Resolution = models.Resolution{Outcome: string(outcome), Reason: reason}.Encode()
	if err := tx.UpdateBid(ctx, bid); err != nil {
		return err
	}

	if outcome == models.BidStatusWon {
		batch.Add(events.TypeBidWon, bid.PlayerID, now, events.BidWonPayload{
			BidID:      bid.ID.String(),
			PlayerID:   bid.PlayerID.String(),
			TeamID:     bid.TeamID.String(),
			Amount:     bid.Amount,
			ResolvedAt: now,
		}, bid.TeamID)
		return nil
	}
	batch.Add(events.TypeBidLost, bid.PlayerID, now, events.BidLostPayload{
		BidID:      bid.ID.String(),
		PlayerID:   bid.PlayerID.String(),
		TeamID:     bid.TeamID.String(),
		Amount:     bid.Amount,
		Reason:     reason,
		ResolvedAt: now,
	}, bid.TeamID)
	return nil
}
