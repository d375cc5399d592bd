package main

import (
	"fmt"
	"os"

	"github.com/mcdev12/dynasty-market/go/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// loadConfig reads the market config and configures the global logger from it
func loadConfig() (config.Config, error) {
	if configPath != "" {
		if err := os.Setenv("MARKET_CONFIG", configPath); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := setupLogging(cfg.Log.Level); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(lvl)
	return nil
}
