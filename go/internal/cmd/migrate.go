package main

import (
	"github.com/mcdev12/dynasty-market/go/internal/dbconfig"
	"github.com/mcdev12/dynasty-market/go/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the market schema to Postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		database, err := setupDatabase(cmd.Context(), dbconfig.NewConfigFromEnv())
		if err != nil {
			return err
		}
		defer database.Close()

		if err := store.Migrate(cmd.Context(), database); err != nil {
			return err
		}
		log.Info().Msg("schema applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
