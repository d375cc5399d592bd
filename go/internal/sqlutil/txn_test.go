package sqlutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueries struct{ tx *sql.Tx }

func newFakeQueries(tx *sql.Tx) *fakeQueries { return &fakeQueries{tx: tx} }

func TestRun_CommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	err = Run(context.Background(), db, nil, newFakeQueries, func(q *fakeQueries) error {
		assert.NotNil(t, q.tx)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = Run(context.Background(), db, nil, newFakeQueries, func(*fakeQueries) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_RetriesDeadlocks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	deadlock := fmt.Errorf("lock player: %w", &pgconn.PgError{Code: "40P01"})
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err = Run(context.Background(), db, nil, newFakeQueries, func(*fakeQueries) error {
		calls++
		if calls == 1 {
			return deadlock
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunWithClock_BacksOffBetweenAttempts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	deadlock := &pgconn.PgError{Code: "40P01"}
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	fake := clockwork.NewFakeClock()
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- RunWithClock(ctx, fake, db, nil, newFakeQueries, func(*fakeQueries) error {
			if calls.Add(1) < 3 {
				return deadlock
			}
			return nil
		})
	}()

	require.NoError(t, fake.BlockUntilContext(ctx, 1))
	assert.Equal(t, int32(1), calls.Load())
	fake.Advance(Backoff(1))

	require.NoError(t, fake.BlockUntilContext(ctx, 1))
	assert.Equal(t, int32(2), calls.Load())
	fake.Advance(Backoff(2))

	require.NoError(t, <-done)
	assert.Equal(t, int32(3), calls.Load())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunWithClock_GivesUpAfterMaxAttempts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < MaxAttempts; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	fake := clockwork.NewFakeClock()
	serialization := &pgconn.PgError{Code: "40001"}
	done := make(chan error, 1)
	go func() {
		done <- RunWithClock(ctx, fake, db, nil, newFakeQueries, func(*fakeQueries) error { return serialization })
	}()

	for attempt := 1; attempt < MaxAttempts; attempt++ {
		require.NoError(t, fake.BlockUntilContext(ctx, 1))
		fake.Advance(Backoff(attempt))
	}
	require.ErrorIs(t, <-done, serialization)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunWithClock_StopsWaitingOnCancel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	ctx, cancel := context.WithCancel(context.Background())
	fake := clockwork.NewFakeClock()
	done := make(chan error, 1)
	go func() {
		done <- RunWithClock(ctx, fake, db, nil, newFakeQueries, func(*fakeQueries) error {
			return &pgconn.PgError{Code: "55P03"}
		})
	}()

	waitCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	require.NoError(t, fake.BlockUntilContext(waitCtx, 1))
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "55P03"})))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("plain")))
}
