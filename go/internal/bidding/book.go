// Package bidding is the free-agent Bid Book: teams place monetary bids on free agents,
// each with a sliding expiration, and the book answers who is currently winning.
package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/dynasty-market/go/internal/events"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/store"
	"github.com/rs/zerolog/log"
)

var (
	ErrPlayerNotAvailable = errors.New("player not available")
	ErrBidTooLow          = errors.New("bid too low")
	ErrInvalidAmount      = errors.New("bid amount must be positive")
)

// Projector vets a bid against the team's projected cap and roster usage
type Projector interface {
	CheckBid(ctx context.Context, tx store.Tx, teamID, playerID uuid.UUID, amount int64, now time.Time) error
}

// Waker is told when a new deadline may have been created
type Waker interface {
	Wake()
}

// BidView is a bid with its status computed at a point in time
type BidView struct {
	models.Bid
	Status models.BidStatus `json:"status"`
}

// Book records bids and computes winners
type Book struct {
	store     store.Store
	window    time.Duration
	projector Projector
	sink      events.Sink
	waker     Waker
}

// NewBook creates a Bid Book. projector and waker may be nil.
func NewBook(st store.Store, window time.Duration, projector Projector, sink events.Sink, waker Waker) *Book {
	if sink == nil {
		sink = events.Discard{}
	}
	return &Book{
		store:     st,
		window:    window,
		projector: projector,
		sink:      sink,
		waker:     waker,
	}
}

// PlaceBid records teamID's bid of amount on playerID at now. A team holds at most one
// open bid per player: re-bidding the same amount while on top extends its expiration,
// a higher amount replaces it. Any accepted bid runs for the full bidding window from now.
func (b *Book) PlaceBid(ctx context.Context, teamID, playerID uuid.UUID, amount int64, now time.Time) (*models.Bid, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var (
		placed *models.Bid
		batch  events.Batch
	)
	err := b.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		placed, batch = nil, nil

		player, err := tx.LockPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		if _, err := tx.GetTeam(ctx, teamID); err != nil {
			return err
		}
		if !player.IsFreeAgent() {
			return fmt.Errorf("player %s is %s: %w", playerID, player.Status, ErrPlayerNotAvailable)
		}

		all, err := tx.ListBidsByPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		open := store.UnresolvedBids(all)
		if Closed(open, now) {
			return fmt.Errorf("auction for player %s closed awaiting resolution: %w", playerID, ErrPlayerNotAvailable)
		}

		top := Top(open)
		var own *models.Bid
		for i := range open {
			if open[i].TeamID == teamID {
				own = &open[i]
				break
			}
		}

		if own != nil && top != nil && own.ID == top.ID && amount == own.Amount {
			own.ExpiresAt = now.Add(b.window)
			if err := tx.UpdateBid(ctx, own); err != nil {
				return err
			}
			placed = own
			batch.Add(events.TypeBidPlaced, playerID, now, placedPayload(own), teamID)
			return nil
		}

		if top != nil && amount <= top.Amount {
			return fmt.Errorf("bid %d does not exceed %d: %w", amount, top.Amount, ErrBidTooLow)
		}

		if b.projector != nil {
			if err := b.projector.CheckBid(ctx, tx, teamID, playerID, amount, now); err != nil {
				return err
			}
		}

		if own != nil {
			own.Amount = amount
			own.PlacedAt = now
			own.ExpiresAt = now.Add(b.window)
			if err := tx.UpdateBid(ctx, own); err != nil {
				return err
			}
			placed = own
		} else {
			placed = &models.Bid{
				ID:        uuid.New(),
				PlayerID:  playerID,
				TeamID:    teamID,
				Amount:    amount,
				PlacedAt:  now,
				ExpiresAt: now.Add(b.window),
			}
			if err := tx.InsertBid(ctx, placed); err != nil {
				return err
			}
		}

		batch.Add(events.TypeBidPlaced, playerID, now, placedPayload(placed), teamID)
		if top != nil && top.TeamID != teamID {
			batch.Add(events.TypeBidOutbid, playerID, now, events.BidOutbidPayload{
				BidID:     top.ID.String(),
				PlayerID:  playerID.String(),
				TeamID:    top.TeamID.String(),
				Amount:    top.Amount,
				TopAmount: amount,
			}, top.TeamID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to place bid: %w", err)
	}

	log.Info().
		Str("bid_id", placed.ID.String()).
		Str("player_id", playerID.String()).
		Str("team_id", teamID.String()).
		Int64("amount", placed.Amount).
		Time("expires_at", placed.ExpiresAt).
		Msg("bid placed")

	b.sink.Publish(ctx, batch...)
	if b.waker != nil {
		b.waker.Wake()
	}
	return placed, nil
}

func placedPayload(bid *models.Bid) events.BidPlacedPayload {
	return events.BidPlacedPayload{
		BidID:     bid.ID.String(),
		PlayerID:  bid.PlayerID.String(),
		TeamID:    bid.TeamID.String(),
		Amount:    bid.Amount,
		PlacedAt:  bid.PlacedAt,
		ExpiresAt: bid.ExpiresAt,
	}
}

// HighestBid returns the best bid on playerID still running at now, or nil
func (b *Book) HighestBid(ctx context.Context, playerID uuid.UUID, now time.Time) (*models.Bid, error) {
	var top *models.Bid
	err := b.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetPlayer(ctx, playerID); err != nil {
			return err
		}
		bids, err := tx.ListBidsByPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		top = HighestActive(bids, now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get highest bid: %w", err)
	}
	return top, nil
}

// PlayerBids returns every bid ever placed on playerID with its status at now
func (b *Book) PlayerBids(ctx context.Context, playerID uuid.UUID, now time.Time) ([]BidView, error) {
	var views []BidView
	err := b.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetPlayer(ctx, playerID); err != nil {
			return err
		}
		bids, err := tx.ListBidsByPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		views = make([]BidView, len(bids))
		for i := range bids {
			views[i] = BidView{Bid: bids[i], Status: StatusOf(&bids[i], bids, now)}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list player bids: %w", err)
	}
	return views, nil
}

// TeamBids returns teamID's bids with their status at now. With activeOnly set,
// bids the resolver has already closed are left out.
func (b *Book) TeamBids(ctx context.Context, teamID uuid.UUID, now time.Time, activeOnly bool) ([]BidView, error) {
	var views []BidView
	err := b.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		views = nil
		if _, err := tx.GetTeam(ctx, teamID); err != nil {
			return err
		}
		bids, err := tx.ListBidsByTeam(ctx, teamID)
		if err != nil {
			return err
		}
		snapshots := make(map[uuid.UUID][]models.Bid)
		for i := range bids {
			bid := &bids[i]
			if activeOnly && bid.IsResolved() {
				continue
			}
			snapshot, ok := snapshots[bid.PlayerID]
			if !ok {
				if snapshot, err = tx.ListBidsByPlayer(ctx, bid.PlayerID); err != nil {
					return err
				}
				snapshots[bid.PlayerID] = snapshot
			}
			views = append(views, BidView{Bid: *bid, Status: StatusOf(bid, snapshot, now)})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list team bids: %w", err)
	}
	return views, nil
}
