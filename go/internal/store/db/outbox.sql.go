package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const outboxColumns = `id, event_type, subject_id, payload, created_at, sent_at, attempts, last_error`

func scanOutbox(row interface{ Scan(...interface{}) error }) (MarketOutbox, error) {
	var i MarketOutbox
	err := row.Scan(
		&i.ID,
		&i.EventType,
		&i.SubjectID,
		&i.Payload,
		&i.CreatedAt,
		&i.SentAt,
		&i.Attempts,
		&i.LastError,
	)
	return i, err
}

const insertOutboxEvent = `-- name: InsertOutboxEvent :exec
INSERT INTO market_outbox (id, event_type, subject_id, payload) VALUES ($1, $2, $3, $4)
`

type InsertOutboxEventParams struct {
	ID        uuid.UUID `json:"id"`
	EventType string    `json:"event_type"`
	SubjectID uuid.UUID `json:"subject_id"`
	Payload   []byte    `json:"payload"`
}

func (q *Queries) InsertOutboxEvent(ctx context.Context, arg InsertOutboxEventParams) error {
	_, err := q.db.ExecContext(ctx, insertOutboxEvent, arg.ID, arg.EventType, arg.SubjectID, arg.Payload)
	return err
}

const fetchUnsentOutbox = `-- name: FetchUnsentOutbox :many
SELECT ` + outboxColumns + ` FROM market_outbox
WHERE sent_at IS NULL
ORDER BY created_at
LIMIT $1
FOR UPDATE SKIP LOCKED
`

func (q *Queries) FetchUnsentOutbox(ctx context.Context, limit int32) ([]MarketOutbox, error) {
	rows, err := q.db.QueryContext(ctx, fetchUnsentOutbox, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MarketOutbox
	for rows.Next() {
		i, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const fetchOutboxByID = `-- name: FetchOutboxByID :one
SELECT ` + outboxColumns + ` FROM market_outbox
WHERE id = $1 AND sent_at IS NULL
FOR UPDATE SKIP LOCKED
`

func (q *Queries) FetchOutboxByID(ctx context.Context, id uuid.UUID) (MarketOutbox, error) {
	return scanOutbox(q.db.QueryRowContext(ctx, fetchOutboxByID, id))
}

const markOutboxSent = `-- name: MarkOutboxSent :exec
UPDATE market_outbox SET sent_at = now(), attempts = attempts + 1, last_error = NULL
WHERE id = $1
`

func (q *Queries) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, markOutboxSent, id)
	return err
}

const markOutboxFailed = `-- name: MarkOutboxFailed :exec
UPDATE market_outbox SET attempts = attempts + 1, last_error = $2 WHERE id = $1
`

func (q *Queries) MarkOutboxFailed(ctx context.Context, id uuid.UUID, lastError sql.NullString) error {
	_, err := q.db.ExecContext(ctx, markOutboxFailed, id, lastError)
	return err
}

const countPendingOutbox = `-- name: CountPendingOutbox :one
SELECT COUNT(*) FROM market_outbox WHERE sent_at IS NULL
`

func (q *Queries) CountPendingOutbox(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPendingOutbox)
	var count int64
	err := row.Scan(&count)
	return count, err
}
