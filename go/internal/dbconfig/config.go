// Package dbconfig resolves how the market processes reach Postgres: the connection
// target plus the pool limits every serve, sweep and relay process applies.
package dbconfig

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Config holds Postgres connection and pool settings.
type Config struct {
	// URL, when set from DATABASE_URL, overrides the discrete fields below.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// NewConfigFromEnv reads DATABASE_URL or the DB_* variables, plus the DB_POOL_* limits.
// Unparsable numbers fall back to their defaults; Validate reports what is still wrong.
func NewConfigFromEnv() Config {
	return Config{
		URL:      os.Getenv("DATABASE_URL"),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		Database: getEnv("DB_NAME", "dynasty_market"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),

		MaxOpenConns:    getInt("DB_POOL_MAX_OPEN", 25),
		MaxIdleConns:    getInt("DB_POOL_MAX_IDLE", 5),
		ConnMaxIdleTime: getDuration("DB_POOL_MAX_IDLE_TIME", 5*time.Minute),
		ConnMaxLifetime: getDuration("DB_POOL_MAX_LIFETIME", 30*time.Minute),
		PingTimeout:     getDuration("DB_PING_TIMEOUT", 5*time.Second),
	}
}

// DSN returns the Postgres connection URL.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Target parses the DSN and returns where it points, for logging without the password.
func (c Config) Target() (host string, port uint16, database string, err error) {
	pc, err := pgconn.ParseConfig(c.DSN())
	if err != nil {
		return "", 0, "", fmt.Errorf("invalid database url: %w", err)
	}
	return pc.Host, pc.Port, pc.Database, nil
}

// Validate checks that the DSN parses and the pool limits are usable
func (c Config) Validate() error {
	var errs []error
	if _, _, _, err := c.Target(); err != nil {
		errs = append(errs, err)
	}
	if c.URL == "" && (c.Port <= 0 || c.Port > 65535) {
		errs = append(errs, fmt.Errorf("DB_PORT %d out of range", c.Port))
	}
	if c.MaxOpenConns <= 0 {
		errs = append(errs, fmt.Errorf("DB_POOL_MAX_OPEN must be positive, got %d", c.MaxOpenConns))
	}
	if c.MaxIdleConns < 0 || c.MaxIdleConns > c.MaxOpenConns {
		errs = append(errs, fmt.Errorf("DB_POOL_MAX_IDLE %d must be between 0 and %d", c.MaxIdleConns, c.MaxOpenConns))
	}
	if c.PingTimeout <= 0 {
		errs = append(errs, errors.New("DB_PING_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// ApplyPool sets the pool limits on db
func (c Config) ApplyPool(db *sql.DB) {
	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxIdleConns)
	db.SetConnMaxIdleTime(c.ConnMaxIdleTime)
	db.SetConnMaxLifetime(c.ConnMaxLifetime)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}
