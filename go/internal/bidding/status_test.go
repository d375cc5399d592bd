package bidding

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	low := models.Bid{ID: uuid.New(), Amount: 100, PlacedAt: t0, ExpiresAt: t0.Add(48 * time.Hour)}
	high := models.Bid{ID: uuid.New(), Amount: 200, PlacedAt: t0.Add(10 * time.Hour), ExpiresAt: t0.Add(58 * time.Hour)}
	snapshot := []models.Bid{low, high}

	tests := []struct {
		name string
		bid  models.Bid
		now  time.Time
		want models.BidStatus
	}{
		{name: "top bid live", bid: high, now: t0.Add(20 * time.Hour), want: models.BidStatusWinning},
		{name: "lower bid live", bid: low, now: t0.Add(20 * time.Hour), want: models.BidStatusOutbid},
		{name: "lower bid expired while auction runs", bid: low, now: t0.Add(50 * time.Hour), want: models.BidStatusLost},
		{name: "top bid once auction closes", bid: high, now: t0.Add(58 * time.Hour), want: models.BidStatusWon},
		{name: "lower bid once auction closes", bid: low, now: t0.Add(58 * time.Hour), want: models.BidStatusLost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(&tt.bid, snapshot, tt.now))
		})
	}
}

func TestStatusOf_StoredOutcomeWins(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	voided := models.Bid{ID: uuid.New(), Amount: 900, ExpiresAt: t0, Outcome: models.BidStatusLost}
	assert.Equal(t, models.BidStatusLost, StatusOf(&voided, []models.Bid{voided}, t0.Add(time.Hour)))
}

func TestTop_TieGoesToEarliestBid(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := models.Bid{ID: uuid.New(), Amount: 500, PlacedAt: t0, ExpiresAt: t0.Add(time.Hour)}
	second := models.Bid{ID: uuid.New(), Amount: 500, PlacedAt: t0.Add(time.Minute), ExpiresAt: t0.Add(time.Hour)}

	for i := 0; i < 10; i++ {
		assert.Equal(t, first.ID, Top([]models.Bid{second, first}).ID)
		assert.Equal(t, first.ID, HighestActive([]models.Bid{first, second}, t0).ID)
	}
}

func TestHighestActive_IgnoresExpiredAndResolved(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expired := models.Bid{ID: uuid.New(), Amount: 900, ExpiresAt: t0}
	resolved := models.Bid{ID: uuid.New(), Amount: 800, ExpiresAt: t0.Add(time.Hour), Outcome: models.BidStatusLost}
	live := models.Bid{ID: uuid.New(), Amount: 100, ExpiresAt: t0.Add(time.Hour)}

	got := HighestActive([]models.Bid{expired, resolved, live}, t0)
	assert.Equal(t, live.ID, got.ID)
	assert.Nil(t, HighestActive([]models.Bid{expired}, t0))
	assert.True(t, Closed([]models.Bid{expired}, t0))
	assert.False(t, Closed(nil, t0))
}
