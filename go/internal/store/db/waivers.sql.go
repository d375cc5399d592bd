package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const waiverColumns = `id, player_id, origin_team_id, placed_at, claim_deadline, status, awarded_claim_id, resolved_at, resolution`

func scanWaiver(row interface{ Scan(...interface{}) error }) (Waiver, error) {
	var i Waiver
	err := row.Scan(
		&i.ID,
		&i.PlayerID,
		&i.OriginTeamID,
		&i.PlacedAt,
		&i.ClaimDeadline,
		&i.Status,
		&i.AwardedClaimID,
		&i.ResolvedAt,
		&i.Resolution,
	)
	return i, err
}

const createWaiver = `-- name: CreateWaiver :exec
INSERT INTO waivers (` + waiverColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type CreateWaiverParams Waiver

func (q *Queries) CreateWaiver(ctx context.Context, arg CreateWaiverParams) error {
	_, err := q.db.ExecContext(ctx, createWaiver,
		arg.ID,
		arg.PlayerID,
		arg.OriginTeamID,
		arg.PlacedAt,
		arg.ClaimDeadline,
		arg.Status,
		arg.AwardedClaimID,
		arg.ResolvedAt,
		arg.Resolution,
	)
	return err
}

const getWaiver = `-- name: GetWaiver :one
SELECT ` + waiverColumns + ` FROM waivers WHERE id = $1
`

func (q *Queries) GetWaiver(ctx context.Context, id uuid.UUID) (Waiver, error) {
	return scanWaiver(q.db.QueryRowContext(ctx, getWaiver, id))
}

const lockWaiver = `-- name: LockWaiver :one
SELECT ` + waiverColumns + ` FROM waivers WHERE id = $1 FOR UPDATE
`

func (q *Queries) LockWaiver(ctx context.Context, id uuid.UUID) (Waiver, error) {
	return scanWaiver(q.db.QueryRowContext(ctx, lockWaiver, id))
}

const updateWaiver = `-- name: UpdateWaiver :execrows
UPDATE waivers
SET status = $2, awarded_claim_id = $3, resolved_at = $4, resolution = $5
WHERE id = $1
`

type UpdateWaiverParams struct {
	ID             uuid.UUID     `json:"id"`
	Status         string        `json:"status"`
	AwardedClaimID uuid.NullUUID `json:"awarded_claim_id"`
	ResolvedAt     sql.NullTime  `json:"resolved_at"`
	Resolution     pqtype.NullRawMessage `json:"resolution"`
}

func (q *Queries) UpdateWaiver(ctx context.Context, arg UpdateWaiverParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateWaiver,
		arg.ID,
		arg.Status,
		arg.AwardedClaimID,
		arg.ResolvedAt,
		arg.Resolution,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listDueWaivers = `-- name: ListDueWaivers :many
SELECT id FROM waivers
WHERE status = 'ACTIVE' AND claim_deadline <= $1
ORDER BY claim_deadline, id
LIMIT $2
`

type ListDueWaiversParams struct {
	Now   time.Time `json:"now"`
	Limit int32     `json:"limit"`
}

func (q *Queries) ListDueWaivers(ctx context.Context, arg ListDueWaiversParams) ([]uuid.UUID, error) {
	rows, err := q.db.QueryContext(ctx, listDueWaivers, arg.Now, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const nextWaiverDeadline = `-- name: NextWaiverDeadline :one
SELECT MIN(claim_deadline)::TIMESTAMPTZ FROM waivers WHERE status = 'ACTIVE'
`

func (q *Queries) NextWaiverDeadline(ctx context.Context) (sql.NullTime, error) {
	row := q.db.QueryRowContext(ctx, nextWaiverDeadline)
	var deadline sql.NullTime
	err := row.Scan(&deadline)
	return deadline, err
}

const claimColumns = `id, waiver_id, team_id, submitted_at, request_key, status, reason, resolved_at`

func scanClaim(row interface{ Scan(...interface{}) error }) (WaiverClaim, error) {
	var i WaiverClaim
	err := row.Scan(
		&i.ID,
		&i.WaiverID,
		&i.TeamID,
		&i.SubmittedAt,
		&i.RequestKey,
		&i.Status,
		&i.Reason,
		&i.ResolvedAt,
	)
	return i, err
}

const createWaiverClaim = `-- name: CreateWaiverClaim :exec
INSERT INTO waiver_claims (` + claimColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type CreateWaiverClaimParams WaiverClaim

func (q *Queries) CreateWaiverClaim(ctx context.Context, arg CreateWaiverClaimParams) error {
	_, err := q.db.ExecContext(ctx, createWaiverClaim,
		arg.ID,
		arg.WaiverID,
		arg.TeamID,
		arg.SubmittedAt,
		arg.RequestKey,
		arg.Status,
		arg.Reason,
		arg.ResolvedAt,
	)
	return err
}

const updateWaiverClaim = `-- name: UpdateWaiverClaim :execrows
UPDATE waiver_claims SET status = $2, reason = $3, resolved_at = $4 WHERE id = $1
`

type UpdateWaiverClaimParams struct {
	ID         uuid.UUID      `json:"id"`
	Status     string         `json:"status"`
	Reason     sql.NullString `json:"reason"`
	ResolvedAt sql.NullTime   `json:"resolved_at"`
}

func (q *Queries) UpdateWaiverClaim(ctx context.Context, arg UpdateWaiverClaimParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateWaiverClaim, arg.ID, arg.Status, arg.Reason, arg.ResolvedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listClaimsByWaiver = `-- name: ListClaimsByWaiver :many
SELECT ` + claimColumns + ` FROM waiver_claims WHERE waiver_id = $1 ORDER BY submitted_at, id
`

func (q *Queries) ListClaimsByWaiver(ctx context.Context, waiverID uuid.UUID) ([]WaiverClaim, error) {
	return q.listClaims(ctx, listClaimsByWaiver, waiverID)
}

const listClaimsByTeam = `-- name: ListClaimsByTeam :many
SELECT ` + claimColumns + ` FROM waiver_claims WHERE team_id = $1 ORDER BY submitted_at, id
`

func (q *Queries) ListClaimsByTeam(ctx context.Context, teamID uuid.UUID) ([]WaiverClaim, error) {
	return q.listClaims(ctx, listClaimsByTeam, teamID)
}

func (q *Queries) listClaims(ctx context.Context, query string, id uuid.UUID) ([]WaiverClaim, error) {
	rows, err := q.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WaiverClaim
	for rows.Next() {
		i, err := scanClaim(rows)
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
