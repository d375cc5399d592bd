// Package markettest builds in-memory markets for tests
package markettest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/dynasty-market/go/internal/events"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/roster"
	"github.com/mcdev12/dynasty-market/go/internal/store"
	"github.com/stretchr/testify/require"
)

// Epoch is the fake clock's starting time
var Epoch = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

type Fixture struct {
	t        testing.TB
	Store    *store.MemoryStore
	Clock    *clockwork.FakeClock
	Ledger   *roster.Ledger
	Settings models.MarketSettings
	Sink     *events.Collector
}

func New(t testing.TB, settings models.MarketSettings) *Fixture {
	t.Helper()
	st := store.NewMemoryStore()
	clock := clockwork.NewFakeClockAt(Epoch)
	return &Fixture{
		t:        t,
		Store:    st,
		Clock:    clock,
		Ledger:   roster.NewLedger(st, settings, clock),
		Settings: settings,
		Sink:     &events.Collector{},
	}
}

// At returns Epoch plus d
func At(d time.Duration) time.Time {
	return Epoch.Add(d)
}

func (f *Fixture) Team(name string) uuid.UUID {
	f.t.Helper()
	team, err := f.Ledger.CreateTeam(context.Background(), name)
	require.NoError(f.t, err)
	return team.ID
}

func (f *Fixture) FreeAgent(name string, salary int64) uuid.UUID {
	f.t.Helper()
	p, err := f.Ledger.CreatePlayer(context.Background(), name, salary)
	require.NoError(f.t, err)
	return p.ID
}

// Rostered creates a player already on teamID's roster
func (f *Fixture) Rostered(teamID uuid.UUID, name string, salary int64) uuid.UUID {
	f.t.Helper()
	id := f.FreeAgent(name, salary)
	_, err := f.Ledger.AdminAssign(context.Background(), id, &teamID)
	require.NoError(f.t, err)
	return id
}

// Fill rosters n players of the given salary onto teamID
func (f *Fixture) Fill(teamID uuid.UUID, n int, salary int64) {
	f.t.Helper()
	for i := 0; i < n; i++ {
		f.Rostered(teamID, fmt.Sprintf("Depth %d", i), salary)
	}
}

func (f *Fixture) Player(id uuid.UUID) *models.Player {
	f.t.Helper()
	var p *models.Player
	require.NoError(f.t, f.Store.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		p, err = tx.GetPlayer(ctx, id)
		return err
	}))
	return p
}

func (f *Fixture) Bids(playerID uuid.UUID) []models.Bid {
	f.t.Helper()
	var bids []models.Bid
	require.NoError(f.t, f.Store.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		bids, err = tx.ListBidsByPlayer(ctx, playerID)
		return err
	}))
	return bids
}

func (f *Fixture) Bid(playerID, teamID uuid.UUID) *models.Bid {
	f.t.Helper()
	for _, b := range f.Bids(playerID) {
		if b.TeamID == teamID {
			b := b
			return &b
		}
	}
	f.t.Fatalf("no bid from team %s on player %s", teamID, playerID)
	return nil
}

func (f *Fixture) Usage(teamID uuid.UUID) models.RosterUsage {
	f.t.Helper()
	usage, err := f.Ledger.Usage(context.Background(), teamID)
	require.NoError(f.t, err)
	return usage
}

func (f *Fixture) Waiver(id uuid.UUID) (*models.Waiver, []models.WaiverClaim) {
	f.t.Helper()
	var (
		w      *models.Waiver
		claims []models.WaiverClaim
	)
	require.NoError(f.t, f.Store.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		if w, err = tx.GetWaiver(ctx, id); err != nil {
			return err
		}
		claims, err = tx.ListClaimsByWaiver(ctx, id)
		return err
	}))
	return w, claims
}
