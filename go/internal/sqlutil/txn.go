package sqlutil

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
)

// MaxAttempts is how many times Run tries a transaction that keeps losing lock races.
const MaxAttempts = 4

// Run executes fn inside a *sql.Tx.
// If fn returns an error the tx rolls back, else it commits. Transactions that fail
// with a serialization, deadlock or lock-timeout error are retried from the start,
// so fn must not leak state between attempts.
func Run[T any](
	ctx context.Context,
	db *sql.DB,
	opts *sql.TxOptions,
	newQueries func(*sql.Tx) *T,
	fn func(q *T) error,
) error {
	return RunWithClock(ctx, clockwork.NewRealClock(), db, opts, newQueries, fn)
}

// RunWithClock is Run with the retry backoff measured on clock.
func RunWithClock[T any](
	ctx context.Context,
	clock clockwork.Clock,
	db *sql.DB,
	opts *sql.TxOptions,
	newQueries func(*sql.Tx) *T,
	fn func(q *T) error,
) error {
	var err error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		err = runOnce(ctx, db, opts, newQueries, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(Backoff(attempt)):
		}
	}
	return err
}

// Backoff is the pause after the given failed attempt
func Backoff(attempt int) time.Duration {
	return time.Duration(attempt) * 25 * time.Millisecond
}

func runOnce[T any](
	ctx context.Context,
	db *sql.DB,
	opts *sql.TxOptions,
	newQueries func(*sql.Tx) *T,
	fn func(q *T) error,
) error {
	tx, err := db.BeginTx(ctx, opts) // BEGIN
	if err != nil {
		return err
	}
	q := newQueries(tx) // bind Queries to this tx
	if err := fn(q); err != nil {
		_ = tx.Rollback() // ROLLBACK
		return err
	}
	return tx.Commit() // COMMIT
}

// IsRetryable reports whether err is a Postgres concurrency failure worth retrying:
// serialization_failure, deadlock_detected or lock_not_available.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}
