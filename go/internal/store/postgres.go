package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/sqlutil"
	"github.com/mcdev12/dynasty-market/go/internal/store/db"
)

//go:embed schema.sql
var Schema string

// Migrate applies the market schema. Statements are idempotent.
func Migrate(ctx context.Context, database *sql.DB) error {
	if _, err := database.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// PostgresStore persists the market in Postgres and relies on row locks (SELECT ... FOR UPDATE)
type PostgresStore struct {
	db      *sql.DB
	queries *db.Queries
}

func NewPostgresStore(database *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:      database,
		queries: db.New(database),
	}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return sqlutil.Run(ctx, s.db, nil, s.queries.WithTx, func(q *db.Queries) error {
		return fn(ctx, &pgTx{q: q})
	})
}

func (s *PostgresStore) DuePlayers(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	ids, err := s.queries.ListDuePlayers(ctx, db.ListDuePlayersParams{Now: now, Limit: queryLimit(limit)})
	if err != nil {
		return nil, fmt.Errorf("failed to list due players: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) DueWaivers(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	ids, err := s.queries.ListDueWaivers(ctx, db.ListDueWaiversParams{Now: now, Limit: queryLimit(limit)})
	if err != nil {
		return nil, fmt.Errorf("failed to list due waivers: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) NextDeadline(ctx context.Context) (*time.Time, error) {
	auction, err := s.queries.NextAuctionDeadline(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get next auction deadline: %w", err)
	}
	waiver, err := s.queries.NextWaiverDeadline(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get next waiver deadline: %w", err)
	}

	next := sqlutil.FromSqlTime(auction)
	if w := sqlutil.FromSqlTime(waiver); w != nil && (next == nil || w.Before(*next)) {
		next = w
	}
	return next, nil
}

func queryLimit(limit int) int32 {
	if limit <= 0 {
		return 1 << 30
	}
	return int32(limit)
}

type pgTx struct {
	q *db.Queries
}

func notFound(err error, kind string, id uuid.UUID) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %s: %w", kind, id, err)
}

func (t *pgTx) InsertTeam(ctx context.Context, team *models.Team) error {
	if err := t.q.CreateTeam(ctx, db.CreateTeamParams{
		ID:        team.ID,
		Name:      team.Name,
		CreatedAt: team.CreatedAt,
	}); err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (t *pgTx) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	row, err := t.q.GetTeam(ctx, id)
	if err != nil {
		return nil, notFound(err, "team", id)
	}
	return &models.Team{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt}, nil
}

func (t *pgTx) LockTeams(ctx context.Context, ids ...uuid.UUID) error {
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })
	for _, id := range sorted {
		if _, err := t.q.LockTeam(ctx, id); err != nil {
			return notFound(err, "team", id)
		}
	}
	return nil
}

func (t *pgTx) TeamUsage(ctx context.Context, teamID uuid.UUID) (models.RosterUsage, error) {
	row, err := t.q.GetTeamUsage(ctx, teamID)
	if err != nil {
		return models.RosterUsage{}, fmt.Errorf("failed to get team usage: %w", err)
	}
	return models.RosterUsage{TeamID: teamID, Salary: row.Salary, PlayerCount: int(row.PlayerCount)}, nil
}

func (t *pgTx) ListRosterPlayers(ctx context.Context, teamID uuid.UUID) ([]models.Player, error) {
	rows, err := t.q.ListRosterPlayers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster players: %w", err)
	}
	players := make([]models.Player, len(rows))
	for i, row := range rows {
		players[i] = *dbPlayerToModel(row)
	}
	return players, nil
}

func (t *pgTx) InsertPlayer(ctx context.Context, player *models.Player) error {
	if err := t.q.CreatePlayer(ctx, db.CreatePlayerParams(modelPlayerToDB(player))); err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

func (t *pgTx) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	row, err := t.q.GetPlayer(ctx, id)
	if err != nil {
		return nil, notFound(err, "player", id)
	}
	return dbPlayerToModel(row), nil
}

func (t *pgTx) LockPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	row, err := t.q.LockPlayer(ctx, id)
	if err != nil {
		return nil, notFound(err, "player", id)
	}
	return dbPlayerToModel(row), nil
}

func (t *pgTx) SavePlayer(ctx context.Context, player *models.Player) error {
	n, err := t.q.UpdatePlayer(ctx, db.UpdatePlayerParams(modelPlayerToDB(player)))
	if err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("player %s: %w", player.ID, ErrNotFound)
	}
	return nil
}

func (t *pgTx) InsertBid(ctx context.Context, bid *models.Bid) error {
	if err := t.q.CreateBid(ctx, db.CreateBidParams(modelBidToDB(bid))); err != nil {
		return fmt.Errorf("failed to create bid: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateBid(ctx context.Context, bid *models.Bid) error {
	n, err := t.q.UpdateBid(ctx, db.UpdateBidParams(modelBidToDB(bid)))
	if err != nil {
		return fmt.Errorf("failed to update bid: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("bid %s: %w", bid.ID, ErrNotFound)
	}
	return nil
}

func (t *pgTx) ListBidsByPlayer(ctx context.Context, playerID uuid.UUID) ([]models.Bid, error) {
	rows, err := t.q.ListBidsByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids by player: %w", err)
	}
	return dbBidsToModels(rows), nil
}

func (t *pgTx) ListBidsByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Bid, error) {
	rows, err := t.q.ListBidsByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids by team: %w", err)
	}
	return dbBidsToModels(rows), nil
}

func (t *pgTx) InsertWaiver(ctx context.Context, waiver *models.Waiver) error {
	if err := t.q.CreateWaiver(ctx, db.CreateWaiverParams{
		ID:             waiver.ID,
		PlayerID:       waiver.PlayerID,
		OriginTeamID:   waiver.OriginTeamID,
		PlacedAt:       waiver.PlacedAt,
		ClaimDeadline:  waiver.ClaimDeadline,
		Status:         string(waiver.Status),
		AwardedClaimID: sqlutil.ToNullUUID(waiver.AwardedClaimID),
		ResolvedAt:     sqlutil.ToSqlTime(waiver.ResolvedAt),
		Resolution:     sqlutil.ToNullRawMessage(waiver.Resolution),
	}); err != nil {
		return fmt.Errorf("failed to create waiver: %w", err)
	}
	return nil
}

func (t *pgTx) GetWaiver(ctx context.Context, id uuid.UUID) (*models.Waiver, error) {
	row, err := t.q.GetWaiver(ctx, id)
	if err != nil {
		return nil, notFound(err, "waiver", id)
	}
	return dbWaiverToModel(row), nil
}

func (t *pgTx) LockWaiver(ctx context.Context, id uuid.UUID) (*models.Waiver, error) {
	row, err := t.q.LockWaiver(ctx, id)
	if err != nil {
		return nil, notFound(err, "waiver", id)
	}
	return dbWaiverToModel(row), nil
}

func (t *pgTx) UpdateWaiver(ctx context.Context, waiver *models.Waiver) error {
	n, err := t.q.UpdateWaiver(ctx, db.UpdateWaiverParams{
		ID:             waiver.ID,
		Status:         string(waiver.Status),
		AwardedClaimID: sqlutil.ToNullUUID(waiver.AwardedClaimID),
		ResolvedAt:     sqlutil.ToSqlTime(waiver.ResolvedAt),
		Resolution:     sqlutil.ToNullRawMessage(waiver.Resolution),
	})
	if err != nil {
		return fmt.Errorf("failed to update waiver: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("waiver %s: %w", waiver.ID, ErrNotFound)
	}
	return nil
}

func (t *pgTx) InsertClaim(ctx context.Context, claim *models.WaiverClaim) error {
	if err := t.q.CreateWaiverClaim(ctx, db.CreateWaiverClaimParams{
		ID:          claim.ID,
		WaiverID:    claim.WaiverID,
		TeamID:      claim.TeamID,
		SubmittedAt: claim.SubmittedAt,
		RequestKey:  claim.RequestKey,
		Status:      string(claim.Status),
		Reason:      sqlutil.ToSqlString(claim.Reason),
		ResolvedAt:  sqlutil.ToSqlTime(claim.ResolvedAt),
	}); err != nil {
		return fmt.Errorf("failed to create waiver claim: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateClaim(ctx context.Context, claim *models.WaiverClaim) error {
	n, err := t.q.UpdateWaiverClaim(ctx, db.UpdateWaiverClaimParams{
		ID:         claim.ID,
		Status:     string(claim.Status),
		Reason:     sqlutil.ToSqlString(claim.Reason),
		ResolvedAt: sqlutil.ToSqlTime(claim.ResolvedAt),
	})
	if err != nil {
		return fmt.Errorf("failed to update waiver claim: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("claim %s: %w", claim.ID, ErrNotFound)
	}
	return nil
}

func (t *pgTx) ListClaimsByWaiver(ctx context.Context, waiverID uuid.UUID) ([]models.WaiverClaim, error) {
	rows, err := t.q.ListClaimsByWaiver(ctx, waiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims by waiver: %w", err)
	}
	return dbClaimsToModels(rows), nil
}

func (t *pgTx) ListClaimsByTeam(ctx context.Context, teamID uuid.UUID) ([]models.WaiverClaim, error) {
	rows, err := t.q.ListClaimsByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims by team: %w", err)
	}
	return dbClaimsToModels(rows), nil
}

func dbPlayerToModel(row db.Player) *models.Player {
	return &models.Player{
		ID:              row.ID,
		FullName:        row.FullName,
		Salary:          row.Salary,
		Status:          models.PlayerStatus(row.Status),
		TeamID:          sqlutil.FromNullUUID(row.TeamID),
		WaiverID:        sqlutil.FromNullUUID(row.WaiverID),
		AcquiredAt:      sqlutil.FromSqlTime(row.AcquiredAt),
		AcquisitionType: models.AcquisitionType(sqlutil.FromSqlString(row.AcquisitionType, "")),
		UpdatedAt:       row.UpdatedAt,
	}
}

func modelPlayerToDB(p *models.Player) db.Player {
	return db.Player{
		ID:              p.ID,
		FullName:        p.FullName,
		Salary:          p.Salary,
		Status:          string(p.Status),
		TeamID:          sqlutil.ToNullUUID(p.TeamID),
		WaiverID:        sqlutil.ToNullUUID(p.WaiverID),
		AcquiredAt:      sqlutil.ToSqlTime(p.AcquiredAt),
		AcquisitionType: sqlutil.ToSqlString(string(p.AcquisitionType)),
		UpdatedAt:       p.UpdatedAt,
	}
}

func modelBidToDB(b *models.Bid) db.Bid {
	return db.Bid{
		ID:         b.ID,
		PlayerID:   b.PlayerID,
		TeamID:     b.TeamID,
		Amount:     b.Amount,
		PlacedAt:   b.PlacedAt,
		ExpiresAt:  b.ExpiresAt,
		Outcome:    sqlutil.ToSqlString(string(b.Outcome)),
		ResolvedAt: sqlutil.ToSqlTime(b.ResolvedAt),
		Resolution: sqlutil.ToNullRawMessage(b.Resolution),
	}
}

func dbBidsToModels(rows []db.Bid) []models.Bid {
	bids := make([]models.Bid, len(rows))
	for i, row := range rows {
		bids[i] = models.Bid{
			ID:         row.ID,
			PlayerID:   row.PlayerID,
			TeamID:     row.TeamID,
			Amount:     row.Amount,
			PlacedAt:   row.PlacedAt,
			ExpiresAt:  row.ExpiresAt,
			Outcome:    models.BidStatus(sqlutil.FromSqlString(row.Outcome, "")),
			ResolvedAt: sqlutil.FromSqlTime(row.ResolvedAt),
			Resolution: sqlutil.FromNullRawMessage(row.Resolution),
		}
	}
	return bids
}

func dbWaiverToModel(row db.Waiver) *models.Waiver {
	return &models.Waiver{
		ID:             row.ID,
		PlayerID:       row.PlayerID,
		OriginTeamID:   row.OriginTeamID,
		PlacedAt:       row.PlacedAt,
		ClaimDeadline:  row.ClaimDeadline,
		Status:         models.WaiverStatus(row.Status),
		AwardedClaimID: sqlutil.FromNullUUID(row.AwardedClaimID),
		ResolvedAt:     sqlutil.FromSqlTime(row.ResolvedAt),
		Resolution:     sqlutil.FromNullRawMessage(row.Resolution),
	}
}

func dbClaimsToModels(rows []db.WaiverClaim) []models.WaiverClaim {
	claims := make([]models.WaiverClaim, len(rows))
	for i, row := range rows {
		claims[i] = models.WaiverClaim{
			ID:          row.ID,
			WaiverID:    row.WaiverID,
			TeamID:      row.TeamID,
			SubmittedAt: row.SubmittedAt,
			RequestKey:  row.RequestKey,
			Status:      models.ClaimStatus(row.Status),
			Reason:      sqlutil.FromSqlString(row.Reason, ""),
			ResolvedAt:  sqlutil.FromSqlTime(row.ResolvedAt),
		}
	}
	return claims
}
