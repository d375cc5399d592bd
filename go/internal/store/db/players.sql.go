package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const playerColumns = `id, full_name, salary, status, team_id, waiver_id, acquired_at, acquisition_type, updated_at`

func scanPlayer(row interface{ Scan(...interface{}) error }) (Player, error) {
	var i Player
	err := row.Scan(
		&i.ID,
		&i.FullName,
		&i.Salary,
		&i.Status,
		&i.TeamID,
		&i.WaiverID,
		&i.AcquiredAt,
		&i.AcquisitionType,
		&i.UpdatedAt,
	)
	return i, err
}

const createPlayer = `-- name: CreatePlayer :exec
INSERT INTO players (` + playerColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type CreatePlayerParams Player

func (q *Queries) CreatePlayer(ctx context.Context, arg CreatePlayerParams) error {
	_, err := q.db.ExecContext(ctx, createPlayer,
		arg.ID,
		arg.FullName,
		arg.Salary,
		arg.Status,
		arg.TeamID,
		arg.WaiverID,
		arg.AcquiredAt,
		arg.AcquisitionType,
		arg.UpdatedAt,
	)
	return err
}

const getPlayer = `-- name: GetPlayer :one
SELECT ` + playerColumns + ` FROM players WHERE id = $1
`

func (q *Queries) GetPlayer(ctx context.Context, id uuid.UUID) (Player, error) {
	return scanPlayer(q.db.QueryRowContext(ctx, getPlayer, id))
}

const lockPlayer = `-- name: LockPlayer :one
SELECT ` + playerColumns + ` FROM players WHERE id = $1 FOR UPDATE
`

func (q *Queries) LockPlayer(ctx context.Context, id uuid.UUID) (Player, error) {
	return scanPlayer(q.db.QueryRowContext(ctx, lockPlayer, id))
}

const updatePlayer = `-- name: UpdatePlayer :execrows
UPDATE players
SET full_name = $2, salary = $3, status = $4, team_id = $5, waiver_id = $6,
    acquired_at = $7, acquisition_type = $8, updated_at = $9
WHERE id = $1
`

type UpdatePlayerParams Player

func (q *Queries) UpdatePlayer(ctx context.Context, arg UpdatePlayerParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updatePlayer,
		arg.ID,
		arg.FullName,
		arg.Salary,
		arg.Status,
		arg.TeamID,
		arg.WaiverID,
		arg.AcquiredAt,
		arg.AcquisitionType,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listRosterPlayers = `-- name: ListRosterPlayers :many
SELECT ` + playerColumns + ` FROM players
WHERE team_id = $1 AND status = 'ROSTERED'
ORDER BY full_name
`

func (q *Queries) ListRosterPlayers(ctx context.Context, teamID uuid.UUID) ([]Player, error) {
	rows, err := q.db.QueryContext(ctx, listRosterPlayers, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Player
	for rows.Next() {
		i, err := scanPlayer(rows)
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

const listDuePlayers = `-- name: ListDuePlayers :many
SELECT player_id FROM bids
WHERE outcome IS NULL
GROUP BY player_id
HAVING MAX(expires_at) <= $1
ORDER BY MAX(expires_at), player_id
LIMIT $2
`

type ListDuePlayersParams struct {
	Now   time.Time `json:"now"`
	Limit int32     `json:"limit"`
}

func (q *Queries) ListDuePlayers(ctx context.Context, arg ListDuePlayersParams) ([]uuid.UUID, error) {
	rows, err := q.db.QueryContext(ctx, listDuePlayers, arg.Now, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []uuid.UUID
	for rows.Next() {
		var playerID uuid.UUID
		if err := rows.Scan(&playerID); err != nil {
			return nil, err
		}
		items = append(items, playerID)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const nextAuctionDeadline = `-- name: NextAuctionDeadline :one
SELECT MIN(closes_at)::TIMESTAMPTZ FROM (
    SELECT MAX(expires_at) AS closes_at FROM bids
    WHERE outcome IS NULL
    GROUP BY player_id
) AS open_auctions
`

func (q *Queries) NextAuctionDeadline(ctx context.Context) (sql.NullTime, error) {
	row := q.db.QueryRowContext(ctx, nextAuctionDeadline)
	var closesAt sql.NullTime
	err := row.Scan(&closesAt)
	return closesAt, err
}
