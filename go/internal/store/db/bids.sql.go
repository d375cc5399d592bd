package db

import (
	"context"

	"github.com/google/uuid"
)

const bidColumns = `id, player_id, team_id, amount, placed_at, expires_at, outcome, resolved_at, resolution`

func scanBid(row interface{ Scan(...interface{}) error }) (Bid, error) {
	var i Bid
	err := row.Scan(
		&i.ID,
		&i.PlayerID,
		&i.TeamID,
		&i.Amount,
		&i.PlacedAt,
		&i.ExpiresAt,
		&i.Outcome,
		&i.ResolvedAt,
		&i.Resolution,
	)
	return i, err
}

const createBid = `-- name: CreateBid :exec
INSERT INTO bids (` + bidColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type CreateBidParams Bid

func (q *Queries) CreateBid(ctx context.Context, arg CreateBidParams) error {
	_, err := q.db.ExecContext(ctx, createBid,
		arg.ID,
		arg.PlayerID,
		arg.TeamID,
		arg.Amount,
		arg.PlacedAt,
		arg.ExpiresAt,
		arg.Outcome,
		arg.ResolvedAt,
		arg.Resolution,
	)
	return err
}

const updateBid = `-- name: UpdateBid :execrows
UPDATE bids
SET amount = $2, placed_at = $3, expires_at = $4, outcome = $5, resolved_at = $6, resolution = $7
WHERE id = $1
`

type UpdateBidParams Bid

func (q *Queries) UpdateBid(ctx context.Context, arg UpdateBidParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateBid,
		arg.ID,
		arg.Amount,
		arg.PlacedAt,
		arg.ExpiresAt,
		arg.Outcome,
		arg.ResolvedAt,
		arg.Resolution,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listBidsByPlayer = `-- name: ListBidsByPlayer :many
SELECT ` + bidColumns + ` FROM bids WHERE player_id = $1 ORDER BY placed_at, id
`

func (q *Queries) ListBidsByPlayer(ctx context.Context, playerID uuid.UUID) ([]Bid, error) {
	return q.listBids(ctx, listBidsByPlayer, playerID)
}

const listBidsByTeam = `-- name: ListBidsByTeam :many
SELECT ` + bidColumns + ` FROM bids WHERE team_id = $1 ORDER BY placed_at, id
`

func (q *Queries) ListBidsByTeam(ctx context.Context, teamID uuid.UUID) ([]Bid, error) {
	return q.listBids(ctx, listBidsByTeam, teamID)
}

func (q *Queries) listBids(ctx context.Context, query string, id uuid.UUID) ([]Bid, error) {
	rows, err := q.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Bid
	for rows.Next() {
		i, err := scanBid(rows)
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
