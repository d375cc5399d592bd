package bidding

import (
	"time"

	"github.com/mcdev12/dynasty-market/go/internal/models"
)

// Top returns the highest-ranked unresolved bid, expired or not
func Top(bids []models.Bid) *models.Bid {
	var top *models.Bid
	for i := range bids {
		b := &bids[i]
		if b.IsResolved() {
			continue
		}
		if top == nil || b.Outranks(top) {
			top = b
		}
	}
	return top
}

// HighestActive returns the highest-ranked unresolved bid not yet expired at now
func HighestActive(bids []models.Bid, now time.Time) *models.Bid {
	var top *models.Bid
	for i := range bids {
		b := &bids[i]
		if b.IsResolved() || b.IsExpired(now) {
			continue
		}
		if top == nil || b.Outranks(top) {
			top = b
		}
	}
	return top
}

// Closed reports whether every unresolved bid in the snapshot has expired at now.
// A closed auction takes no new bids until it is resolved.
func Closed(bids []models.Bid, now time.Time) bool {
	open := false
	for i := range bids {
		b := &bids[i]
		if b.IsResolved() {
			continue
		}
		if !b.IsExpired(now) {
			return false
		}
		open = true
	}
	return open
}

// StatusOf derives bid's status from the player's full bid snapshot at now.
// Resolved bids report their stored outcome. An expired bid is WON when it tops a
// closed auction and LOST otherwise; a live bid is WINNING when it tops the book.
func StatusOf(bid *models.Bid, playerBids []models.Bid, now time.Time) models.BidStatus {
	if bid.IsResolved() {
		return bid.Outcome
	}
	top := Top(playerBids)
	isTop := top != nil && top.ID == bid.ID

	if bid.IsExpired(now) {
		if isTop && Closed(playerBids, now) {
			return models.BidStatusWon
		}
		return models.BidStatusLost
	}
	if isTop {
		return models.BidStatusWinning
	}
	return models.BidStatusOutbid
}
