// Package config reads the server's settings from the environment.
// A .env file in the working directory is loaded first when present.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// InMemoryDatabase selects the non-persistent user store
const InMemoryDatabase = ":memory:"

// Config holds all runtime configuration
type Config struct {
	// Server settings
	Port  string `env:"PORT"  envDefault:"3001"`
	Debug bool   `env:"DEBUG" envDefault:"false"`

	// Origin
	BaseURL        string        `env:"ANIMEKAI_BASE_URL" envDefault:"https://animekai.to"`
	UserAgent      string        `env:"USER_AGENT"`
	TokenKey       string        `env:"TOKEN_KEY"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"   envDefault:"30s"`
	OriginRPS      float64       `env:"ORIGIN_RPS"        envDefault:"5"`
	OriginBurst    int           `env:"ORIGIN_BURST"      envDefault:"10"`

	// Result cache
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"30m"`

	// User store; empty selects DefaultDatabasePath, InMemoryDatabase disables persistence
	DatabasePath string `env:"DATABASE_PATH"`
}

// Load parses the environment into a Config
func Load() (*Config, error) {
	// a missing .env file is not an error
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "config: failed to parse environment variables")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = DefaultDatabasePath()
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.RequestTimeout <= 0:
		return errors.Errorf("config: REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	case c.CacheTTL <= 0:
		return errors.Errorf("config: CACHE_TTL must be positive, got %s", c.CacheTTL)
	case c.OriginRPS < 0:
		return errors.Errorf("config: ORIGIN_RPS must not be negative, got %v", c.OriginRPS)
	}
	return nil
}

// StorePath is the path handed to the user store; empty means in-memory
func (c *Config) StorePath() string {
	if c.DatabasePath == InMemoryDatabase {
		return ""
	}
	return c.DatabasePath
}

// Addr is the listen address for Port
func (c *Config) Addr() string {
	return ":" + c.Port
}

// DefaultDatabasePath returns ~/.local/kaistream/kaistream.db, or a path in the working
// directory when the home directory is unknown
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "kaistream.db")
	}
	return filepath.Join(home, ".local", "kaistream", "kaistream.db")
}
