package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "marketd",
	Short: "Player acquisition market",
	Long: `marketd runs the league's player market: timed free-agent auctions,
waiver claims, and the outbox relay that publishes market events.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "market config file (default $MARKET_CONFIG or market.yaml)")
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
