package waiver_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/dynasty-market/go/internal/events"
	"github.com/mcdev12/dynasty-market/go/internal/markettest"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/store"
	"github.com/mcdev12/dynasty-market/go/internal/waiver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_EarliestClaimWins(t *testing.T) {
	ctx := context.Background()
	w := newWire(t, models.DefaultMarketSettings())
	c, d, e := w.Team("C"), w.Team("D"), w.Team("E")
	y := w.Rostered(c, "Player Y", 3_000_000)
	wv := w.drop(t, c, y, 0)

	claimE := w.claim(t, wv.ID, e, 3*time.Hour)
	claimD := w.claim(t, wv.ID, d, time.Hour)

	results, err := w.resolver.Sweep(ctx, markettest.At(7*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = w.resolver.Sweep(ctx, markettest.At(8*time.Hour))
	require.NoError(t, err)
	require.Len(t, results, 1)
	res := results[0]
	assert.Equal(t, waiver.OutcomeAwarded, res.Outcome)
	require.NotNil(t, res.Awarded)
	assert.Equal(t, claimD.ID, res.Awarded.ID)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, claimE.ID, res.Rejected[0].ID)

	player := w.Player(y)
	assert.True(t, player.IsRosteredTo(d))
	assert.Nil(t, player.WaiverID)
	assert.Equal(t, int64(3_000_000), player.Salary)
	assert.Equal(t, models.AcquisitionTypeWaiver, player.AcquisitionType)

	resolved, claims := w.Waiver(wv.ID)
	assert.Equal(t, models.WaiverStatusResolved, resolved.Status)
	require.NotNil(t, resolved.AwardedClaimID)
	assert.Equal(t, claimD.ID, *resolved.AwardedClaimID)
	require.Len(t, claims, 2)
	assert.Equal(t, models.ClaimStatusAwarded, claims[0].Status)
	assert.Equal(t, models.ClaimStatusRejected, claims[1].Status)
	assert.Equal(t, models.ReasonOutranked, claims[1].Reason)

	awarded := w.Sink.OfType(events.TypeWaiverAwarded)
	require.Len(t, awarded, 1)
	assert.True(t, awarded[0].Concerns(d))
	assert.True(t, awarded[0].Concerns(c))
	assert.False(t, awarded[0].Concerns(e))
	rejected := w.Sink.OfType(events.TypeClaimRejected)
	require.Len(t, rejected, 1)
	assert.True(t, rejected[0].Concerns(e))
}

func TestResolveWaiver_Idempotent(t *testing.T) {
	ctx := context.Background()
	w := newWire(t, models.DefaultMarketSettings())
	c, d := w.Team("C"), w.Team("D")
	y := w.Rostered(c, "Player Y", 3_000_000)
	wv := w.drop(t, c, y, 0)
	w.claim(t, wv.ID, d, time.Hour)

	first, err := w.resolver.ResolveWaiver(ctx, wv.ID, markettest.At(9*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, waiver.OutcomeAwarded, first.Outcome)
	published := len(w.Sink.Events())

	again, err := w.resolver.ResolveWaiver(ctx, wv.ID, markettest.At(10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, waiver.OutcomeNoop, again.Outcome)
	assert.Len(t, w.Sink.Events(), published)
	assert.True(t, w.Player(y).IsRosteredTo(d))
}

func TestResolveWaiver_DeferredBeforeDeadline(t *testing.T) {
	w := newWire(t, models.DefaultMarketSettings())
	c := w.Team("C")
	y := w.Rostered(c, "Player Y", 3_000_000)
	wv := w.drop(t, c, y, 0)

	res, err := w.resolver.ResolveWaiver(context.Background(), wv.ID, markettest.At(7*time.Hour+59*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, waiver.OutcomeDeferred, res.Outcome)
	assert.Equal(t, models.PlayerStatusOnWaivers, w.Player(y).Status)
}

func TestResolveWaiver_NoClaimsReturnsPlayerToPool(t *testing.T) {
	w := newWire(t, models.DefaultMarketSettings())
	c := w.Team("C")
	y := w.Rostered(c, "Player Y", 3_000_000)
	wv := w.drop(t, c, y, 0)

	res, err := w.resolver.ResolveWaiver(context.Background(), wv.ID, markettest.At(8*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, waiver.OutcomeCleared, res.Outcome)

	player := w.Player(y)
	assert.True(t, player.IsFreeAgent())
	assert.Nil(t, player.TeamID)
	assert.Nil(t, player.WaiverID)

	resolved, _ := w.Waiver(wv.ID)
	assert.Equal(t, models.WaiverStatusResolved, resolved.Status)
	assert.Nil(t, resolved.AwardedClaimID)
	assert.JSONEq(t, `{"outcome":"cleared","reason":"no_claims"}`, string(resolved.Resolution))

	cleared := w.Sink.OfType(events.TypeWaiverCleared)
	require.Len(t, cleared, 1)
	assert.True(t, cleared[0].Concerns(c))
}

func TestResolveWaiver_FallsThroughIneligibleClaimants(t *testing.T) {
	ctx := context.Background()
	settings := models.DefaultMarketSettings()
	settings.MaxRosterSize = 2
	settings.SalaryCap = 10_000_000
	w := newWire(t, settings)
	c, d, e, f := w.Team("C"), w.Team("D"), w.Team("E"), w.Team("F")
	y := w.Rostered(c, "Player Y", 3_000_000)
	wv := w.drop(t, c, y, 0)

	claimD := w.claim(t, wv.ID, d, time.Hour)
	claimE := w.claim(t, wv.ID, e, 2*time.Hour)
	claimF := w.claim(t, wv.ID, f, 3*time.Hour)

	// D and E commit elsewhere after claiming
	w.Fill(d, 2, 1_000_000)
	w.Rostered(e, "Big Contract", 8_000_000)

	res, err := w.resolver.ResolveWaiver(ctx, wv.ID, markettest.At(8*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, waiver.OutcomeAwarded, res.Outcome)
	assert.Equal(t, claimF.ID, res.Awarded.ID)
	assert.True(t, w.Player(y).IsRosteredTo(f))

	_, claims := w.Waiver(wv.ID)
	reasons := map[string]string{}
	for _, cl := range claims {
		reasons[cl.ID.String()] = cl.Reason
	}
	assert.Equal(t, models.ReasonRosterFull, reasons[claimD.ID.String()])
	assert.Equal(t, models.ReasonCapExceeded, reasons[claimE.ID.String()])
	assert.Equal(t, models.ReasonAwarded, reasons[claimF.ID.String()])
}

func TestResolveWaiver_AllClaimantsIneligible(t *testing.T) {
	settings := models.DefaultMarketSettings()
	settings.MaxRosterSize = 1
	w := newWire(t, settings)
	c, d := w.Team("C"), w.Team("D")
	y := w.Rostered(c, "Player Y", 3_000_000)
	wv := w.drop(t, c, y, 0)
	w.claim(t, wv.ID, d, time.Hour)
	w.Fill(d, 1, 1_000_000)

	res, err := w.resolver.ResolveWaiver(context.Background(), wv.ID, markettest.At(8*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, waiver.OutcomeCleared, res.Outcome)
	assert.Len(t, res.Rejected, 1)
	assert.True(t, w.Player(y).IsFreeAgent())

	resolved, claims := w.Waiver(wv.ID)
	assert.JSONEq(t, `{"outcome":"cleared","reason":"no_eligible_claim"}`, string(resolved.Resolution))
	assert.Equal(t, models.ClaimStatusRejected, claims[0].Status)
}

func TestResolveWaiver_AdminOverrideRejectsClaims(t *testing.T) {
	ctx := context.Background()
	w := newWire(t, models.DefaultMarketSettings())
	c, d, admin := w.Team("C"), w.Team("D"), w.Team("Admin")
	y := w.Rostered(c, "Player Y", 3_000_000)
	wv := w.drop(t, c, y, 0)
	w.claim(t, wv.ID, d, time.Hour)

	_, err := w.Ledger.AdminAssign(ctx, y, &admin)
	require.NoError(t, err)

	res, err := w.resolver.ResolveWaiver(ctx, wv.ID, markettest.At(8*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, waiver.OutcomeUnavailable, res.Outcome)
	assert.True(t, w.Player(y).IsRosteredTo(admin))

	resolved, claims := w.Waiver(wv.ID)
	assert.Equal(t, models.WaiverStatusResolved, resolved.Status)
	assert.Equal(t, models.ReasonPlayerUnavailable, claims[0].Reason)
}

func TestSweep_ConcurrentSweepsResolveOnce(t *testing.T) {
	ctx := context.Background()
	w := newWire(t, models.DefaultMarketSettings())
	c := w.Team("C")
	claimants := []string{"D", "E", "F", "G"}
	var waivers []*models.Waiver
	for i := 0; i < 6; i++ {
		p := w.Rostered(c, "Depth", 1_000_000)
		wv := w.drop(t, c, p, time.Duration(i)*time.Minute)
		for j, name := range claimants {
			w.claim(t, wv.ID, w.Team(name), time.Hour+time.Duration(j)*time.Minute)
		}
		waivers = append(waivers, wv)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.resolver.Sweep(ctx, markettest.At(9*time.Hour))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, w.Sink.OfType(events.TypeWaiverAwarded), len(waivers))
	for _, wv := range waivers {
		_, claims := w.Waiver(wv.ID)
		awarded := 0
		for _, cl := range claims {
			if cl.Status == models.ClaimStatusAwarded {
				awarded++
			}
		}
		assert.Equal(t, 1, awarded)
	}
}

var errLockUnavailable = errors.New("lock unavailable")

// brokenStore fails every attempt to lock one player
type brokenStore struct {
	store.Store
	player uuid.UUID
}

func (s brokenStore) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, brokenTx{Tx: tx, player: s.player})
	})
}

type brokenTx struct {
	store.Tx
	player uuid.UUID
}

func (tx brokenTx) LockPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	if id == tx.player {
		return nil, errLockUnavailable
	}
	return tx.Tx.LockPlayer(ctx, id)
}

func TestSweep_FailureDoesNotStopOtherWaivers(t *testing.T) {
	ctx := context.Background()
	w := newWire(t, models.DefaultMarketSettings())
	c, d := w.Team("C"), w.Team("D")
	y := w.Rostered(c, "Player Y", 1_000_000)
	z := w.Rostered(c, "Player Z", 1_000_000)
	wy := w.drop(t, c, y, 0)
	wz := w.drop(t, c, z, 0)
	w.claim(t, wy.ID, d, time.Hour)
	w.claim(t, wz.ID, d, time.Hour)

	resolver := waiver.NewResolver(brokenStore{Store: w.Store, player: y}, w.Ledger, w.Sink, nil, 2)
	results, err := resolver.Sweep(ctx, markettest.At(8*time.Hour))
	require.NoError(t, err)
	require.Len(t, results, 2)

	byWaiver := map[uuid.UUID]waiver.Result{}
	for _, res := range results {
		byWaiver[res.WaiverID] = res
	}
	assert.Equal(t, waiver.OutcomeFailed, byWaiver[wy.ID].Outcome)
	assert.ErrorIs(t, byWaiver[wy.ID].Err, errLockUnavailable)
	assert.Equal(t, waiver.OutcomeAwarded, byWaiver[wz.ID].Outcome)

	assert.True(t, w.Player(z).IsRosteredTo(d))
	assert.True(t, w.Player(y).IsOnWaiver(wy.ID))
}
