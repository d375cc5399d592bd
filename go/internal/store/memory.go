package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/dynasty-market/go/internal/models"
)

// MemoryStore keeps the market in process memory. Writes are staged per transaction
// and applied on commit; entity locks are held until the transaction ends.
type MemoryStore struct {
	mu      sync.RWMutex
	teams   map[uuid.UUID]models.Team
	players map[uuid.UUID]models.Player
	bids    map[uuid.UUID]models.Bid
	waivers map[uuid.UUID]models.Waiver
	claims  map[uuid.UUID]models.WaiverClaim

	locks *keyLocker
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teams:   make(map[uuid.UUID]models.Team),
		players: make(map[uuid.UUID]models.Player),
		bids:    make(map[uuid.UUID]models.Bid),
		waivers: make(map[uuid.UUID]models.Waiver),
		claims:  make(map[uuid.UUID]models.WaiverClaim),
		locks:   newKeyLocker(),
	}
}

var _ Store = (*MemoryStore)(nil)

// InTx runs fn against a staged view of the store
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{
		s:       s,
		held:    make(map[string]bool),
		teams:   make(map[uuid.UUID]models.Team),
		players: make(map[uuid.UUID]models.Player),
		bids:    make(map[uuid.UUID]models.Bid),
		waivers: make(map[uuid.UUID]models.Waiver),
		claims:  make(map[uuid.UUID]models.WaiverClaim),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// DuePlayers returns players whose open bids have all expired
func (s *MemoryStore) DuePlayers(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.RLock()
	closing := s.closingTimes()
	s.mu.RUnlock()

	type due struct {
		id uuid.UUID
		at time.Time
	}
	var ready []due
	for id, at := range closing {
		if !at.After(now) {
			ready = append(ready, due{id: id, at: at})
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		if !ready[i].at.Equal(ready[j].at) {
			return ready[i].at.Before(ready[j].at)
		}
		return ready[i].id.String() < ready[j].id.String()
	})

	out := make([]uuid.UUID, 0, len(ready))
	for _, d := range ready {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, d.id)
	}
	return out, nil
}

// DueWaivers returns active waivers past their claim deadline
func (s *MemoryStore) DueWaivers(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.RLock()
	var ready []models.Waiver
	for _, w := range s.waivers {
		if w.Status == models.WaiverStatusActive && !w.ClaimDeadline.After(now) {
			ready = append(ready, w)
		}
	}
	s.mu.RUnlock()

	sort.Slice(ready, func(i, j int) bool {
		if !ready[i].ClaimDeadline.Equal(ready[j].ClaimDeadline) {
			return ready[i].ClaimDeadline.Before(ready[j].ClaimDeadline)
		}
		return ready[i].ID.String() < ready[j].ID.String()
	})

	out := make([]uuid.UUID, 0, len(ready))
	for _, w := range ready {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, w.ID)
	}
	return out, nil
}

// NextDeadline returns the earliest auction close or waiver deadline
func (s *MemoryStore) NextDeadline(_ context.Context) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var next *time.Time
	consider := func(t time.Time) {
		if next == nil || t.Before(*next) {
			t := t
			next = &t
		}
	}
	for _, at := range s.closingTimes() {
		consider(at)
	}
	for _, w := range s.waivers {
		if w.Status == models.WaiverStatusActive {
			consider(w.ClaimDeadline)
		}
	}
	return next, nil
}

// closingTimes maps each player with open bids to its latest bid expiry. Caller holds mu.
func (s *MemoryStore) closingTimes() map[uuid.UUID]time.Time {
	closing := make(map[uuid.UUID]time.Time)
	for _, b := range s.bids {
		if b.IsResolved() {
			continue
		}
		if at, ok := closing[b.PlayerID]; !ok || b.ExpiresAt.After(at) {
			closing[b.PlayerID] = b.ExpiresAt
		}
	}
	return closing
}

type memTx struct {
	s     *MemoryStore
	held  map[string]bool
	order []string

	teams   map[uuid.UUID]models.Team
	players map[uuid.UUID]models.Player
	bids    map[uuid.UUID]models.Bid
	waivers map[uuid.UUID]models.Waiver
	claims  map[uuid.UUID]models.WaiverClaim
}

func (tx *memTx) acquire(ctx context.Context, key string) error {
	if tx.held[key] {
		return nil
	}
	if err := tx.s.locks.lock(ctx, key); err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	tx.held[key] = true
	tx.order = append(tx.order, key)
	return nil
}

func (tx *memTx) release() {
	for i := len(tx.order) - 1; i >= 0; i-- {
		tx.s.locks.unlock(tx.order[i])
	}
	tx.order = nil
}

func (tx *memTx) commit() {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	apply(tx.s.teams, tx.teams)
	apply(tx.s.players, tx.players)
	apply(tx.s.bids, tx.bids)
	apply(tx.s.waivers, tx.waivers)
	apply(tx.s.claims, tx.claims)
}

func apply[T any](dst, src map[uuid.UUID]T) {
	for id, v := range src {
		dst[id] = v
	}
}

func lookup[T any](mu *sync.RWMutex, committed, pending map[uuid.UUID]T, id uuid.UUID) (T, bool) {
	if v, ok := pending[id]; ok {
		return v, true
	}
	mu.RLock()
	defer mu.RUnlock()
	v, ok := committed[id]
	return v, ok
}

func filter[T any](mu *sync.RWMutex, committed, pending map[uuid.UUID]T, keep func(T) bool) []T {
	var out []T
	mu.RLock()
	for id, v := range committed {
		if _, staged := pending[id]; staged {
			continue
		}
		if keep(v) {
			out = append(out, v)
		}
	}
	mu.RUnlock()
	for _, v := range pending {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (tx *memTx) InsertTeam(_ context.Context, team *models.Team) error {
	if _, ok := lookup(&tx.s.mu, tx.s.teams, tx.teams, team.ID); ok {
		return fmt.Errorf("team %s already exists", team.ID)
	}
	tx.teams[team.ID] = *team
	return nil
}

func (tx *memTx) GetTeam(_ context.Context, id uuid.UUID) (*models.Team, error) {
	team, ok := lookup(&tx.s.mu, tx.s.teams, tx.teams, id)
	if !ok {
		return nil, fmt.Errorf("team %s: %w", id, ErrNotFound)
	}
	return &team, nil
}

func (tx *memTx) LockTeams(ctx context.Context, ids ...uuid.UUID) error {
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })
	for _, id := range sorted {
		if _, err := tx.GetTeam(ctx, id); err != nil {
			return err
		}
		if err := tx.acquire(ctx, "team:"+id.String()); err != nil {
			return err
		}
	}
	return nil
}

func (tx *memTx) TeamUsage(ctx context.Context, teamID uuid.UUID) (models.RosterUsage, error) {
	players, err := tx.ListRosterPlayers(ctx, teamID)
	if err != nil {
		return models.RosterUsage{}, err
	}
	usage := models.RosterUsage{TeamID: teamID, PlayerCount: len(players)}
	for _, p := range players {
		usage.Salary += p.Salary
	}
	return usage, nil
}

func (tx *memTx) ListRosterPlayers(_ context.Context, teamID uuid.UUID) ([]models.Player, error) {
	players := filter(&tx.s.mu, tx.s.players, tx.players, func(p models.Player) bool {
		return p.IsRosteredTo(teamID)
	})
	sort.Slice(players, func(i, j int) bool { return players[i].FullName < players[j].FullName })
	return players, nil
}

func (tx *memTx) InsertPlayer(_ context.Context, player *models.Player) error {
	if _, ok := lookup(&tx.s.mu, tx.s.players, tx.players, player.ID); ok {
		return fmt.Errorf("player %s already exists", player.ID)
	}
	tx.players[player.ID] = *player
	return nil
}

func (tx *memTx) GetPlayer(_ context.Context, id uuid.UUID) (*models.Player, error) {
	player, ok := lookup(&tx.s.mu, tx.s.players, tx.players, id)
	if !ok {
		return nil, fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	return &player, nil
}

func (tx *memTx) LockPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	if err := tx.acquire(ctx, "player:"+id.String()); err != nil {
		return nil, err
	}
	return tx.GetPlayer(ctx, id)
}

func (tx *memTx) SavePlayer(_ context.Context, player *models.Player) error {
	if _, ok := lookup(&tx.s.mu, tx.s.players, tx.players, player.ID); !ok {
		return fmt.Errorf("player %s: %w", player.ID, ErrNotFound)
	}
	tx.players[player.ID] = *player
	return nil
}

func (tx *memTx) InsertBid(_ context.Context, bid *models.Bid) error {
	tx.bids[bid.ID] = *bid
	return nil
}

func (tx *memTx) UpdateBid(_ context.Context, bid *models.Bid) error {
	if _, ok := lookup(&tx.s.mu, tx.s.bids, tx.bids, bid.ID); !ok {
		return fmt.Errorf("bid %s: %w", bid.ID, ErrNotFound)
	}
	tx.bids[bid.ID] = *bid
	return nil
}

func (tx *memTx) ListBidsByPlayer(_ context.Context, playerID uuid.UUID) ([]models.Bid, error) {
	bids := filter(&tx.s.mu, tx.s.bids, tx.bids, func(b models.Bid) bool { return b.PlayerID == playerID })
	sortBids(bids)
	return bids, nil
}

func (tx *memTx) ListBidsByTeam(_ context.Context, teamID uuid.UUID) ([]models.Bid, error) {
	bids := filter(&tx.s.mu, tx.s.bids, tx.bids, func(b models.Bid) bool { return b.TeamID == teamID })
	sortBids(bids)
	return bids, nil
}

func sortBids(bids []models.Bid) {
	sort.Slice(bids, func(i, j int) bool {
		if !bids[i].PlacedAt.Equal(bids[j].PlacedAt) {
			return bids[i].PlacedAt.Before(bids[j].PlacedAt)
		}
		return bids[i].ID.String() < bids[j].ID.String()
	})
}

func (tx *memTx) InsertWaiver(_ context.Context, waiver *models.Waiver) error {
	tx.waivers[waiver.ID] = *waiver
	return nil
}

func (tx *memTx) GetWaiver(_ context.Context, id uuid.UUID) (*models.Waiver, error) {
	waiver, ok := lookup(&tx.s.mu, tx.s.waivers, tx.waivers, id)
	if !ok {
		return nil, fmt.Errorf("waiver %s: %w", id, ErrNotFound)
	}
	return &waiver, nil
}

func (tx *memTx) LockWaiver(ctx context.Context, id uuid.UUID) (*models.Waiver, error) {
	if err := tx.acquire(ctx, "waiver:"+id.String()); err != nil {
		return nil, err
	}
	return tx.GetWaiver(ctx, id)
}

func (tx *memTx) UpdateWaiver(_ context.Context, waiver *models.Waiver) error {
	if _, ok := lookup(&tx.s.mu, tx.s.waivers, tx.waivers, waiver.ID); !ok {
		return fmt.Errorf("waiver %s: %w", waiver.ID, ErrNotFound)
	}
	tx.waivers[waiver.ID] = *waiver
	return nil
}

func (tx *memTx) InsertClaim(_ context.Context, claim *models.WaiverClaim) error {
	tx.claims[claim.ID] = *claim
	return nil
}

func (tx *memTx) UpdateClaim(_ context.Context, claim *models.WaiverClaim) error {
	if _, ok := lookup(&tx.s.mu, tx.s.claims, tx.claims, claim.ID); !ok {
		return fmt.Errorf("claim %s: %w", claim.ID, ErrNotFound)
	}
	tx.claims[claim.ID] = *claim
	return nil
}

func (tx *memTx) ListClaimsByWaiver(_ context.Context, waiverID uuid.UUID) ([]models.WaiverClaim, error) {
	claims := filter(&tx.s.mu, tx.s.claims, tx.claims, func(c models.WaiverClaim) bool { return c.WaiverID == waiverID })
	return models.ClaimsInPriorityOrder(claims), nil
}

func (tx *memTx) ListClaimsByTeam(_ context.Context, teamID uuid.UUID) ([]models.WaiverClaim, error) {
	claims := filter(&tx.s.mu, tx.s.claims, tx.claims, func(c models.WaiverClaim) bool { return c.TeamID == teamID })
	return models.ClaimsInPriorityOrder(claims), nil
}
