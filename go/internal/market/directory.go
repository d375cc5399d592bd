package market

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/dynasty-market/go/internal/store"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// Directory caches team and player display names for read views. Names never change
// after creation, so entries only expire to bound memory.
type Directory struct {
	store    store.Store
	cache    *gocache.Cache
	duration time.Duration
}

func NewDirectory(st store.Store, duration time.Duration) *Directory {
	return &Directory{
		store:    st,
		cache:    gocache.New(duration, duration*2),
		duration: duration,
	}
}

func teamKey(id uuid.UUID) string   { return "team:" + id.String() }
func playerKey(id uuid.UUID) string { return "player:" + id.String() }

func (d *Directory) RememberTeam(id uuid.UUID, name string) {
	d.cache.Set(teamKey(id), name, d.duration)
}

func (d *Directory) RememberPlayer(id uuid.UUID, name string) {
	d.cache.Set(playerKey(id), name, d.duration)
}

// TeamName returns the team's name, or "" if it cannot be loaded
func (d *Directory) TeamName(ctx context.Context, id uuid.UUID) string {
	if name, found := d.cache.Get(teamKey(id)); found {
		return name.(string)
	}
	var name string
	err := d.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		team, err := tx.GetTeam(ctx, id)
		if err != nil {
			return err
		}
		name = team.Name
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("team_id", id.String()).Msg("failed to load team name")
		return ""
	}
	d.RememberTeam(id, name)
	return name
}

// PlayerName returns the player's name, or "" if it cannot be loaded
func (d *Directory) PlayerName(ctx context.Context, id uuid.UUID) string {
	if name, found := d.cache.Get(playerKey(id)); found {
		return name.(string)
	}
	var name string
	err := d.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		player, err := tx.GetPlayer(ctx, id)
		if err != nil {
			return err
		}
		name = player.FullName
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("player_id", id.String()).Msg("failed to load player name")
		return ""
	}
	d.RememberPlayer(id, name)
	return name
}

func (d *Directory) Flush() {
	d.cache.Flush()
}
