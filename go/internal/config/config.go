// Package config loads the market's YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mcdev12/dynasty-market/go/internal/gateway"
	"github.com/mcdev12/dynasty-market/go/internal/models"
	"github.com/mcdev12/dynasty-market/go/internal/outbox"
	"github.com/mcdev12/dynasty-market/go/internal/sweep"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"

	// DefaultPath is read when MARKET_CONFIG is unset
	DefaultPath = "market.yaml"
)

type Config struct {
	Market models.MarketSettings `yaml:"market"`
	Server ServerConfig          `yaml:"server"`
	Store  StoreConfig           `yaml:"store"`
	Sweep  SweepConfig           `yaml:"sweep"`
	Outbox OutboxConfig          `yaml:"outbox"`
	NATS   NATSConfig            `yaml:"nats"`
	Log    LogConfig             `yaml:"log"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	// DirectoryTTL bounds how long display names stay cached
	DirectoryTTL time.Duration `yaml:"directory_ttl"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
}

type SweepConfig struct {
	Workers     int           `yaml:"workers"`
	BatchSize   int           `yaml:"batch_size"`
	IdlePoll    time.Duration `yaml:"idle_poll"`
	MinInterval time.Duration `yaml:"min_interval"`
}

type OutboxConfig struct {
	FallbackInterval time.Duration `yaml:"fallback_interval"`
	BatchSize        int           `yaml:"batch_size"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	ListenerPing     time.Duration `yaml:"listener_ping"`
}

type NATSConfig struct {
	// Enabled publishes relayed events to JetStream; otherwise they are logged
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Stream        string `yaml:"stream"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the reference league with a single in-memory instance
func Default() Config {
	sw := sweep.DefaultConfig()
	relay := outbox.DefaultRelayConfig()
	js := outbox.DefaultJetStreamConfig()
	return Config{
		Market: models.DefaultMarketSettings(),
		Server: ServerConfig{
			Port:         "8080",
			DirectoryTTL: 10 * time.Minute,
		},
		Store: StoreConfig{Driver: DriverMemory},
		Sweep: SweepConfig{
			Workers:     sw.Workers,
			BatchSize:   sw.BatchSize,
			IdlePoll:    sw.IdlePoll,
			MinInterval: sw.MinInterval,
		},
		Outbox: OutboxConfig{
			FallbackInterval: relay.FallbackInterval,
			BatchSize:        relay.BatchSize,
			MaxRetries:       relay.MaxRetries,
			RetryDelay:       relay.RetryDelay,
			ListenerPing:     90 * time.Second,
		},
		NATS: NATSConfig{
			URL:           js.URL,
			Stream:        js.StreamName,
			SubjectPrefix: js.SubjectPrefix,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv loads MARKET_CONFIG and applies environment overrides
func LoadFromEnv() (Config, error) {
	cfg, err := Load(getEnv("MARKET_CONFIG", DefaultPath))
	if err != nil {
		return Config{}, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	if url := os.Getenv("NATS_URL"); url != "" {
		c.NATS.URL = url
		c.NATS.Enabled = true
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Market.SalaryCap <= 0 {
		errs = append(errs, errors.New("market.salary_cap must be positive"))
	}
	if c.Market.MaxRosterSize <= 0 {
		errs = append(errs, errors.New("market.max_roster_size must be positive"))
	}
	if c.Market.BiddingWindow <= 0 {
		errs = append(errs, errors.New("market.bidding_window must be positive"))
	}
	if c.Market.WaiverWindow <= 0 {
		errs = append(errs, errors.New("market.waiver_window must be positive"))
	}
	if c.Store.Driver != DriverMemory && c.Store.Driver != DriverPostgres {
		errs = append(errs, fmt.Errorf("store.driver %q must be %s or %s", c.Store.Driver, DriverMemory, DriverPostgres))
	}
	if c.Sweep.Workers <= 0 {
		errs = append(errs, errors.New("sweep.workers must be positive"))
	}
	if c.Sweep.IdlePoll <= 0 || c.Sweep.MinInterval <= 0 {
		errs = append(errs, errors.New("sweep intervals must be positive"))
	}
	if c.Outbox.BatchSize <= 0 {
		errs = append(errs, errors.New("outbox.batch_size must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) SweepConfig() sweep.Config {
	return sweep.Config{
		Workers:     c.Sweep.Workers,
		BatchSize:   c.Sweep.BatchSize,
		IdlePoll:    c.Sweep.IdlePoll,
		MinInterval: c.Sweep.MinInterval,
	}
}

func (c Config) RelayConfig() outbox.RelayConfig {
	return outbox.RelayConfig{
		FallbackInterval: c.Outbox.FallbackInterval,
		BatchSize:        c.Outbox.BatchSize,
		MaxRetries:       c.Outbox.MaxRetries,
		RetryDelay:       c.Outbox.RetryDelay,
	}
}

func (c Config) JetStreamConfig() outbox.JetStreamConfig {
	js := outbox.DefaultJetStreamConfig()
	js.URL = c.NATS.URL
	js.StreamName = c.NATS.Stream
	js.SubjectPrefix = c.NATS.SubjectPrefix
	return js
}

func (c Config) ConsumerConfig() gateway.JetStreamConsumerConfig {
	cc := gateway.DefaultJetStreamConsumerConfig()
	cc.URL = c.NATS.URL
	cc.StreamName = c.NATS.Stream
	cc.SubjectFilter = c.NATS.SubjectPrefix + ".>"
	return cc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
