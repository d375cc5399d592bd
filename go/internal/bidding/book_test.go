package bidding_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/dynasty-market/go/internal/bidding"
	"github.com/mcdev12/dynasty-market/go/internal/events"
	"github.com/mcdev12/dynasty-market/go/internal/markettest"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWaker struct{ n int }

func (w *countingWaker) Wake() { w.n++ }

func newBook(f *markettest.Fixture, waker bidding.Waker) *bidding.Book {
	return bidding.NewBook(f.Store, f.Settings.BiddingWindow, nil, f.Sink, waker)
}

func TestPlaceBid_RejectsInvalidAmount(t *testing.T) {
	f := markettest.New(t, models.DefaultMarketSettings())
	book := newBook(f, nil)

	_, err := book.PlaceBid(context.Background(), f.Team("A"), f.FreeAgent("X", 0), 0, markettest.Epoch)
	assert.ErrorIs(t, err, bidding.ErrInvalidAmount)
}

func TestPlaceBid_RosteredPlayerNotAvailable(t *testing.T) {
	f := markettest.New(t, models.DefaultMarketSettings())
	book := newBook(f, nil)
	owner := f.Team("Owner")
	player := f.Rostered(owner, "Starter", 1_000_000)

	_, err := book.PlaceBid(context.Background(), f.Team("Bidder"), player, 2_000_000, markettest.Epoch)
	require.ErrorIs(t, err, bidding.ErrPlayerNotAvailable)
	assert.Empty(t, f.Bids(player))
	assert.Empty(t, f.Sink.Events())
}

func TestPlaceBid_UnknownTeam(t *testing.T) {
	f := markettest.New(t, models.DefaultMarketSettings())
	book := newBook(f, nil)
	_, err := book.PlaceBid(context.Background(), uuid.New(), f.FreeAgent("X", 0), 1, markettest.Epoch)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPlaceBid_MustStrictlyExceedTop(t *testing.T) {
	ctx := context.Background()
	f := markettest.New(t, models.DefaultMarketSettings())
	book := newBook(f, nil)
	a, b := f.Team("A"), f.Team("B")
	player := f.FreeAgent("X", 0)

	_, err := book.PlaceBid(ctx, a, player, 2_000_000, markettest.Epoch)
	require.NoError(t, err)

	_, err = book.PlaceBid(ctx, b, player, 2_000_000, markettest.At(time.Hour))
	require.ErrorIs(t, err, bidding.ErrBidTooLow)
	_, err = book.PlaceBid(ctx, b, player, 1_750_000, markettest.At(time.Hour))
	require.ErrorIs(t, err, bidding.ErrBidTooLow)

	top, err := book.HighestBid(ctx, player, markettest.At(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, a, top.TeamID)
}

func TestPlaceBid_SameAmountExtendsOwnBid(t *testing.T) {
	ctx := context.Background()
	f := markettest.New(t, models.DefaultMarketSettings())
	book := newBook(f, nil)
	a := f.Team("A")
	player := f.FreeAgent("X", 0)

	first, err := book.PlaceBid(ctx, a, player, 1_000_000, markettest.Epoch)
	require.NoError(t, err)
	again, err := book.PlaceBid(ctx, a, player, 1_000_000, markettest.At(5*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, markettest.Epoch, again.PlacedAt)
	assert.Equal(t, markettest.At(5*time.Hour+f.Settings.BiddingWindow), again.ExpiresAt)
	assert.Len(t, f.Bids(player), 1)
}

func TestPlaceBid_RaiseReplacesOwnBid(t *testing.T) {
	ctx := context.Background()
	f := markettest.New(t, models.DefaultMarketSettings())
	book := newBook(f, nil)
	a, b := f.Team("A"), f.Team("B")
	player := f.FreeAgent("X", 0)

	_, err := book.PlaceBid(ctx, a, player, 1_000_000, markettest.Epoch)
	require.NoError(t, err)
	_, err = book.PlaceBid(ctx, b, player, 1_250_000, markettest.At(time.Hour))
	require.NoError(t, err)
	raised, err := book.PlaceBid(ctx, a, player, 1_500_000, markettest.At(2*time.Hour))
	require.NoError(t, err)

	bids := f.Bids(player)
	require.Len(t, bids, 2)
	assert.Equal(t, int64(1_500_000), raised.Amount)
	assert.Equal(t, markettest.At(2*time.Hour), raised.PlacedAt)

	views, err := book.PlayerBids(ctx, player, markettest.At(3*time.Hour))
	require.NoError(t, err)
	status := map[string]models.BidStatus{}
	for _, v := range views {
		status[v.TeamID.String()] = v.Status
	}
	assert.Equal(t, models.BidStatusWinning, status[a.String()])
	assert.Equal(t, models.BidStatusOutbid, status[b.String()])
}

func TestPlaceBid_EmitsOutbidToPreviousLeader(t *testing.T) {
	ctx := context.Background()
	f := markettest.New(t, models.DefaultMarketSettings())
	waker := &countingWaker{}
	book := newBook(f, waker)
	a, b := f.Team("A"), f.Team("B")
	player := f.FreeAgent("X", 0)

	_, err := book.PlaceBid(ctx, a, player, 1_000_000, markettest.Epoch)
	require.NoError(t, err)
	_, err = book.PlaceBid(ctx, b, player, 1_250_000, markettest.At(time.Hour))
	require.NoError(t, err)

	assert.Len(t, f.Sink.OfType(events.TypeBidPlaced), 2)
	outbid := f.Sink.OfType(events.TypeBidOutbid)
	require.Len(t, outbid, 1)
	assert.True(t, outbid[0].Concerns(a))
	assert.False(t, outbid[0].Concerns(b))
	assert.Equal(t, 2, waker.n)
}

func TestPlaceBid_ClosedAuctionRejectsLateBid(t *testing.T) {
	ctx := context.Background()
	f := markettest.New(t, models.DefaultMarketSettings())
	book := newBook(f, nil)
	a, b := f.Team("A"), f.Team("B")
	player := f.FreeAgent("X", 0)

	_, err := book.PlaceBid(ctx, a, player, 1_000_000, markettest.Epoch)
	require.NoError(t, err)

	_, err = book.PlaceBid(ctx, b, player, 5_000_000, markettest.At(f.Settings.BiddingWindow))
	assert.ErrorIs(t, err, bidding.ErrPlayerNotAvailable)
}

func TestTeamBids_ActiveOnly(t *testing.T) {
	ctx := context.Background()
	f := markettest.New(t, models.DefaultMarketSettings())
	book := newBook(f, nil)
	a := f.Team("A")
	x, y := f.FreeAgent("X", 0), f.FreeAgent("Y", 0)

	_, err := book.PlaceBid(ctx, a, x, 1_000_000, markettest.Epoch)
	require.NoError(t, err)
	_, err = book.PlaceBid(ctx, a, y, 2_000_000, markettest.Epoch)
	require.NoError(t, err)

	views, err := book.TeamBids(ctx, a, markettest.At(time.Hour), true)
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Equal(t, models.BidStatusWinning, v.Status)
	}
}
