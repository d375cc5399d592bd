package db

import (
	"context"

	"github.com/google/uuid"
)

const createTeam = `-- name: CreateTeam :exec
INSERT INTO teams (id, name, created_at) VALUES ($1, $2, $3)
`

type CreateTeamParams Team

func (q *Queries) CreateTeam(ctx context.Context, arg CreateTeamParams) error {
	_, err := q.db.ExecContext(ctx, createTeam, arg.ID, arg.Name, arg.CreatedAt)
	return err
}

const getTeam = `-- name: GetTeam :one
SELECT id, name, created_at FROM teams WHERE id = $1
`

func (q *Queries) GetTeam(ctx context.Context, id uuid.UUID) (Team, error) {
	row := q.db.QueryRowContext(ctx, getTeam, id)
	var i Team
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const lockTeam = `-- name: LockTeam :one
SELECT id FROM teams WHERE id = $1 FOR UPDATE
`

func (q *Queries) LockTeam(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRowContext(ctx, lockTeam, id)
	var locked uuid.UUID
	err := row.Scan(&locked)
	return locked, err
}

const getTeamUsage = `-- name: GetTeamUsage :one
SELECT COALESCE(SUM(salary), 0)::BIGINT AS salary, COUNT(*)::INT AS player_count
FROM players
WHERE team_id = $1 AND status = 'ROSTERED'
`

type GetTeamUsageRow struct {
	Salary      int64 `json:"salary"`
	PlayerCount int32 `json:"player_count"`
}

func (q *Queries) GetTeamUsage(ctx context.Context, teamID uuid.UUID) (GetTeamUsageRow, error) {
	row := q.db.QueryRowContext(ctx, getTeamUsage, teamID)
	var i GetTeamUsageRow
	err := row.Scan(&i.Salary, &i.PlayerCount)
	return i, err
}
