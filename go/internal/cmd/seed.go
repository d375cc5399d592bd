package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/mcdev12/dynasty-market/go/internal/roster"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedFile lists teams and players to create. JSON files parse as YAML too.
type seedFile struct {
	Teams []struct {
		Name string `yaml:"name" json:"name"`
	} `yaml:"teams" json:"teams"`
	Players []struct {
		FullName string `yaml:"full_name" json:"full_name"`
		Salary   int64  `yaml:"salary" json:"salary"`
		// Team names a team from the same file; empty leaves the player a free agent
		Team string `yaml:"team" json:"team"`
	} `yaml:"players" json:"players"`
}

type seedResult struct {
	Teams    int
	Players  int
	Rostered int
	Skipped  int
}

func readSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return &f, nil
}

// seed creates f's teams and players. Players whose team is unknown or who do not fit
// under the team's limits are skipped and logged.
func seed(ctx context.Context, ledger *roster.Ledger, f *seedFile) (seedResult, error) {
	var res seedResult
	teams := make(map[string]uuid.UUID, len(f.Teams))
	for _, t := range f.Teams {
		team, err := ledger.CreateTeam(ctx, t.Name)
		if err != nil {
			return res, fmt.Errorf("create team %q: %w", t.Name, err)
		}
		teams[t.Name] = team.ID
		res.Teams++
	}

	for _, p := range f.Players {
		var teamID uuid.UUID
		if p.Team != "" {
			id, ok := teams[p.Team]
			if !ok {
				log.Warn().Str("player", p.FullName).Str("team", p.Team).Msg("unknown team, skipping player")
				res.Skipped++
				continue
			}
			teamID = id
		}

		player, err := ledger.CreatePlayer(ctx, p.FullName, p.Salary)
		if err != nil {
			return res, fmt.Errorf("create player %q: %w", p.FullName, err)
		}
		res.Players++
		if teamID == uuid.Nil {
			continue
		}
		if _, err := ledger.AdminAssign(ctx, player.ID, &teamID); err != nil {
			log.Warn().Err(err).Str("player", p.FullName).Str("team", p.Team).Msg("could not roster player, left as free agent")
			res.Skipped++
			continue
		}
		res.Rostered++
	}
	return res, nil
}

var seedCmd = &cobra.Command{
	Use:   "seed FILE",
	Short: "Create teams and players from a YAML or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		f, err := readSeedFile(args[0])
		if err != nil {
			return err
		}
		services, err := setupServices(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer services.Close()

		res, err := seed(cmd.Context(), services.Ledger, f)
		if err != nil {
			return err
		}
		log.Info().
			Int("teams", res.Teams).
			Int("players", res.Players).
			Int("rostered", res.Rostered).
			Int("skipped", res.Skipped).
			Msg("seed complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
