package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Resolve every due auction and waiver once, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		services, err := setupServices(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer services.Close()

		summary, err := services.Scheduler.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		for outcome, n := range summary.Auctions {
			log.Info().Str("kind", "auction").Str("outcome", string(outcome)).Int("count", n).Msg("sweep summary")
		}
		for outcome, n := range summary.Waivers {
			log.Info().Str("kind", "waiver").Str("outcome", string(outcome)).Int("count", n).Msg("sweep summary")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
