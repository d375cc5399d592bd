package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Team struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Player struct {
	ID              uuid.UUID      `json:"id"`
	FullName        string         `json:"full_name"`
	Salary          int64          `json:"salary"`
	Status          string         `json:"status"`
	TeamID          uuid.NullUUID  `json:"team_id"`
	WaiverID        uuid.NullUUID  `json:"waiver_id"`
	AcquiredAt      sql.NullTime   `json:"acquired_at"`
	AcquisitionType sql.NullString `json:"acquisition_type"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type Bid struct {
	ID         uuid.UUID             `json:"id"`
	PlayerID   uuid.UUID             `json:"player_id"`
	TeamID     uuid.UUID             `json:"team_id"`
	Amount     int64                 `json:"amount"`
	PlacedAt   time.Time             `json:"placed_at"`
	ExpiresAt  time.Time             `json:"expires_at"`
	Outcome    sql.NullString        `json:"outcome"`
	ResolvedAt sql.NullTime          `json:"resolved_at"`
	Resolution pqtype.NullRawMessage `json:"resolution"`
}

type Waiver struct {
	ID             uuid.UUID             `json:"id"`
	PlayerID       uuid.UUID             `json:"player_id"`
	OriginTeamID   uuid.UUID             `json:"origin_team_id"`
	PlacedAt       time.Time             `json:"placed_at"`
	ClaimDeadline  time.Time             `json:"claim_deadline"`
	Status         string                `json:"status"`
	AwardedClaimID uuid.NullUUID         `json:"awarded_claim_id"`
	ResolvedAt     sql.NullTime          `json:"resolved_at"`
	Resolution     pqtype.NullRawMessage `json:"resolution"`
}

type WaiverClaim struct {
	ID          uuid.UUID      `json:"id"`
	WaiverID    uuid.UUID      `json:"waiver_id"`
	TeamID      uuid.UUID      `json:"team_id"`
	SubmittedAt time.Time      `json:"submitted_at"`
	RequestKey  string         `json:"request_key"`
	Status      string         `json:"status"`
	Reason      sql.NullString `json:"reason"`
	ResolvedAt  sql.NullTime   `json:"resolved_at"`
}

type MarketOutbox struct {
	ID        uuid.UUID      `json:"id"`
	EventType string         `json:"event_type"`
	SubjectID uuid.UUID      `json:"subject_id"`
	Payload   []byte         `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	SentAt    sql.NullTime   `json:"sent_at"`
	Attempts  int32          `json:"attempts"`
	LastError sql.NullString `json:"last_error"`
}
