package projection_test

import (
	"context"
	"testing"
	"time"

	"github.com/mcdev12/dynasty-market/go/internal/bidding"
	"github.com/mcdev12/dynasty-market/go/internal/markettest"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, settings models.MarketSettings) (*markettest.Fixture, *projection.Projector, *bidding.Book) {
	f := markettest.New(t, settings)
	proj := projection.NewProjector(f.Store, settings)
	book := bidding.NewBook(f.Store, settings.BiddingWindow, proj, f.Sink, nil)
	return f, proj, book
}

func TestProject_CountsOnlyWinningLiveBids(t *testing.T) {
	ctx := context.Background()
	f, proj, book := setup(t, models.DefaultMarketSettings())
	a, b := f.Team("A"), f.Team("B")
	f.Rostered(a, "Vet", 3_000_000)
	x, y := f.FreeAgent("X", 0), f.FreeAgent("Y", 0)

	_, err := book.PlaceBid(ctx, a, x, 1_000_000, markettest.Epoch)
	require.NoError(t, err)
	_, err = book.PlaceBid(ctx, a, y, 2_000_000, markettest.Epoch)
	require.NoError(t, err)
	_, err = book.PlaceBid(ctx, b, y, 2_500_000, markettest.At(time.Hour))
	require.NoError(t, err)

	p, err := proj.Project(ctx, a, markettest.At(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3_000_000), p.CurrentSalary)
	assert.Equal(t, 1, p.CurrentCount)
	assert.Equal(t, int64(1_000_000), p.PendingSalary)
	assert.Equal(t, 1, p.PendingCount)
	assert.Equal(t, int64(4_000_000), p.ProjectedSalary)
	assert.Equal(t, 2, p.ProjectedCount)

	salary, err := proj.ProjectedSalary(ctx, b, markettest.At(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2_500_000), salary)

	// once X's bid expires it no longer counts as pending
	count, err := proj.ProjectedCount(ctx, a, markettest.At(f.Settings.BiddingWindow))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPlaceBid_ProjectedCapExceeded(t *testing.T) {
	ctx := context.Background()
	settings := models.DefaultMarketSettings()
	settings.SalaryCap = 5_000_000
	f, _, book := setup(t, settings)
	a := f.Team("A")
	x, y := f.FreeAgent("X", 0), f.FreeAgent("Y", 0)

	_, err := book.PlaceBid(ctx, a, x, 3_000_000, markettest.Epoch)
	require.NoError(t, err)

	_, err = book.PlaceBid(ctx, a, y, 2_500_000, markettest.At(time.Hour))
	require.ErrorIs(t, err, projection.ErrProjectedCapExceeded)
	assert.Empty(t, f.Bids(y))

	// raising the bid on X replaces the pending amount rather than stacking on it
	_, err = book.PlaceBid(ctx, a, x, 4_500_000, markettest.At(time.Hour))
	require.NoError(t, err)
}

func TestPlaceBid_ProjectedRosterFull(t *testing.T) {
	ctx := context.Background()
	settings := models.DefaultMarketSettings()
	settings.MaxRosterSize = 3
	f, _, book := setup(t, settings)
	a := f.Team("A")
	f.Fill(a, 2, 100_000)
	x, y := f.FreeAgent("X", 0), f.FreeAgent("Y", 0)

	_, err := book.PlaceBid(ctx, a, x, 250_000, markettest.Epoch)
	require.NoError(t, err)
	_, err = book.PlaceBid(ctx, a, y, 250_000, markettest.Epoch)
	assert.ErrorIs(t, err, projection.ErrProjectedRosterFull)
}
