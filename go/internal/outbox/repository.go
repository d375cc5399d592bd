package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/dynasty-market/go/internal/events"
	"github.com/mcdev12/dynasty-market/go/internal/sqlutil"
	"github.com/mcdev12/dynasty-market/go/internal/store/db"
)

// Repository stores outbox events until they are relayed
type Repository interface {
	Insert(ctx context.Context, event events.Event) error
	// Drain hands up to limit unsent events, oldest first, to fn and marks each one
	// sent or failed according to fn's result.
	Drain(ctx context.Context, limit int, fn func(ctx context.Context, event OutboxEvent) error) (DrainResult, error)
	// DrainOne does the same for a single event. A missing or already sent event is skipped.
	DrainOne(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, event OutboxEvent) error) (bool, error)
	CountPending(ctx context.Context) (int64, error)
}

func encode(event events.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", event.ID, err)
	}
	return payload, nil
}

// PostgresRepository keeps the outbox in the market_outbox table. Rows being relayed are
// locked with FOR UPDATE SKIP LOCKED so several relays can share the table.
type PostgresRepository struct {
	db      *sql.DB
	queries *db.Queries
}

func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      database,
		queries: db.New(database),
	}
}

var _ Repository = (*PostgresRepository)(nil)

func (r *PostgresRepository) Insert(ctx context.Context, event events.Event) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	err = r.queries.InsertOutboxEvent(ctx, db.InsertOutboxEventParams{
		ID:        event.ID,
		EventType: string(event.Type),
		SubjectID: event.SubjectID,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", event.Type, err)
	}
	return nil
}

func (r *PostgresRepository) Drain(ctx context.Context, limit int, fn func(ctx context.Context, event OutboxEvent) error) (DrainResult, error) {
	var res DrainResult
	err := sqlutil.Run(ctx, r.db, nil, r.queries.WithTx, func(q *db.Queries) error {
		res = DrainResult{}
		rows, err := q.FetchUnsentOutbox(ctx, int32(limit))
		if err != nil {
			return fmt.Errorf("failed to fetch unsent outbox events: %w", err)
		}
		res.Fetched = len(rows)
		for _, row := range rows {
			ok, err := deliver(ctx, q, row, fn)
			if err != nil {
				return err
			}
			if ok {
				res.Sent++
			} else {
				res.Failed++
			}
		}
		return nil
	})
	return res, err
}

func (r *PostgresRepository) DrainOne(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, event OutboxEvent) error) (bool, error) {
	var sent bool
	err := sqlutil.Run(ctx, r.db, nil, r.queries.WithTx, func(q *db.Queries) error {
		sent = false
		row, err := q.FetchOutboxByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to fetch outbox event: %w", err)
		}
		sent, err = deliver(ctx, q, row, fn)
		return err
	})
	return sent, err
}

func (r *PostgresRepository) CountPending(ctx context.Context) (int64, error) {
	n, err := r.queries.CountPendingOutbox(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending outbox events: %w", err)
	}
	return n, nil
}

func deliver(ctx context.Context, q *db.Queries, row db.MarketOutbox, fn func(ctx context.Context, event OutboxEvent) error) (bool, error) {
	if pubErr := fn(ctx, rowToEvent(row)); pubErr != nil {
		if err := q.MarkOutboxFailed(ctx, row.ID, sql.NullString{String: pubErr.Error(), Valid: true}); err != nil {
			return false, fmt.Errorf("failed to mark outbox event failed: %w", err)
		}
		return false, nil
	}
	if err := q.MarkOutboxSent(ctx, row.ID); err != nil {
		return false, fmt.Errorf("failed to mark outbox event sent: %w", err)
	}
	return true, nil
}

func rowToEvent(row db.MarketOutbox) OutboxEvent {
	e := OutboxEvent{
		ID:        row.ID,
		EventType: row.EventType,
		SubjectID: row.SubjectID,
		Payload:   row.Payload,
		CreatedAt: row.CreatedAt,
		Attempts:  int(row.Attempts),
		LastError: row.LastError.String,
	}
	if row.SentAt.Valid {
		t := row.SentAt.Time
		e.SentAt = &t
	}
	return e
}
