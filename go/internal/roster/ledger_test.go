package roster

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T, settings models.MarketSettings) (*Ledger, *store.MemoryStore, *clockwork.FakeClock) {
	t.Helper()
	st := store.NewMemoryStore()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	return NewLedger(st, settings, clock), st, clock
}

func assign(ctx context.Context, l *Ledger, st store.Store, playerID, teamID uuid.UUID, salary int64) error {
	return st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.LockPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		return l.Assign(ctx, tx, p, Assignment{
			TeamID:      teamID,
			Salary:      salary,
			Acquisition: models.AcquisitionTypeFreeAgent,
			At:          l.clock.Now(),
		})
	})
}

func TestLedger_AssignEnforcesLimits(t *testing.T) {
	settings := models.MarketSettings{SalaryCap: 100, MaxRosterSize: 2}

	tests := []struct {
		name     string
		existing []int64
		salary   int64
		wantErr  error
	}{
		{name: "fits", existing: []int64{40}, salary: 60},
		{name: "roster full", existing: []int64{10, 10}, salary: 1, wantErr: ErrRosterFull},
		{name: "cap exceeded", existing: []int64{50}, salary: 51, wantErr: ErrCapExceeded},
		{name: "exactly at cap", existing: []int64{}, salary: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			l, st, _ := newTestLedger(t, settings)
			team, err := l.CreateTeam(ctx, "Hawks")
			require.NoError(t, err)

			for _, salary := range tt.existing {
				p, err := l.CreatePlayer(ctx, "Veteran", salary)
				require.NoError(t, err)
				require.NoError(t, assign(ctx, l, st, p.ID, team.ID, salary))
			}

			target, err := l.CreatePlayer(ctx, "Target", tt.salary)
			require.NoError(t, err)
			err = assign(ctx, l, st, target.ID, team.ID, tt.salary)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				roster, err := l.Roster(ctx, team.ID)
				require.NoError(t, err)
				assert.Len(t, roster, len(tt.existing))
				return
			}
			require.NoError(t, err)

			usage, err := l.Usage(ctx, team.ID)
			require.NoError(t, err)
			assert.Equal(t, len(tt.existing)+1, usage.PlayerCount)
			assert.LessOrEqual(t, usage.Salary, settings.SalaryCap)
		})
	}
}

func TestLedger_AssignRejectsRosteredPlayer(t *testing.T) {
	ctx := context.Background()
	l, st, _ := newTestLedger(t, models.DefaultMarketSettings())
	a, err := l.CreateTeam(ctx, "A")
	require.NoError(t, err)
	b, err := l.CreateTeam(ctx, "B")
	require.NoError(t, err)
	p, err := l.CreatePlayer(ctx, "Solo", 10)
	require.NoError(t, err)

	require.NoError(t, assign(ctx, l, st, p.ID, a.ID, 10))
	err = assign(ctx, l, st, p.ID, b.ID, 10)
	assert.ErrorIs(t, err, ErrAlreadyRostered)

	count, err := l.CurrentCount(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLedger_ReleaseToWaivers(t *testing.T) {
	ctx := context.Background()
	l, st, _ := newTestLedger(t, models.DefaultMarketSettings())
	team, err := l.CreateTeam(ctx, "A")
	require.NoError(t, err)
	p, err := l.CreatePlayer(ctx, "Dropped", 500)
	require.NoError(t, err)
	require.NoError(t, assign(ctx, l, st, p.ID, team.ID, 500))

	waiverID := uuid.New()
	require.NoError(t, st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := tx.LockPlayer(ctx, p.ID)
		require.NoError(t, err)
		return l.Release(ctx, tx, locked, team.ID, &waiverID, l.clock.Now())
	}))

	salary, err := l.CurrentSalary(ctx, team.ID)
	require.NoError(t, err)
	assert.Zero(t, salary)

	require.NoError(t, st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.GetPlayer(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, got.IsOnWaiver(waiverID))
		assert.Equal(t, team.ID, *got.TeamID)
		return nil
	}))

	err = st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := tx.LockPlayer(ctx, p.ID)
		require.NoError(t, err)
		return l.Release(ctx, tx, locked, team.ID, nil, l.clock.Now())
	})
	assert.ErrorIs(t, err, ErrNotRostered)
}

func TestLedger_AdminAssign(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t, models.DefaultMarketSettings())
	a, err := l.CreateTeam(ctx, "A")
	require.NoError(t, err)
	b, err := l.CreateTeam(ctx, "B")
	require.NoError(t, err)
	p, err := l.CreatePlayer(ctx, "Traded", 700)
	require.NoError(t, err)

	moved, err := l.AdminAssign(ctx, p.ID, &a.ID)
	require.NoError(t, err)
	assert.True(t, moved.IsRosteredTo(a.ID))
	assert.Equal(t, models.AcquisitionTypeAdmin, moved.AcquisitionType)

	moved, err = l.AdminAssign(ctx, p.ID, &b.ID)
	require.NoError(t, err)
	assert.True(t, moved.IsRosteredTo(b.ID))

	countA, err := l.CurrentCount(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, countA)

	freed, err := l.AdminAssign(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.True(t, freed.IsFreeAgent())
	assert.Nil(t, freed.TeamID)
}

func TestLedger_UnknownTeam(t *testing.T) {
	l, _, _ := newTestLedger(t, models.DefaultMarketSettings())
	_, err := l.Usage(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
