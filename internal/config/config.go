package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/festquest.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// RedisURL is optional. When set, progress events are relayed through
	// RedisChannel so every instance's SSE subscribers receive them.
	RedisURL     string `env:"REDIS_URL"`
	RedisChannel string `env:"REDIS_CHANNEL" envDefault:"festquest:events"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"168h"`

	LevelThresholds  []int  `env:"LEVEL_THRESHOLDS" envDefault:"0,100,250,500,750,1000" envSeparator:","`
	LeaderboardLimit int    `env:"LEADERBOARD_LIMIT" envDefault:"50"`
	SeedDemo         bool   `env:"SEED_DEMO" envDefault:"false"`
	CompleteRetries  uint64 `env:"COMPLETE_RETRIES" envDefault:"3"`
	CatalogFile      string `env:"CATALOG_FILE"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	if len(c.LevelThresholds) == 0 || c.LevelThresholds[0] != 0 {
		return errors.New("LEVEL_THRESHOLDS must start at 0")
	}
	for i := 1; i < len(c.LevelThresholds); i++ {
		if c.LevelThresholds[i] <= c.LevelThresholds[i-1] {
			return fmt.Errorf("LEVEL_THRESHOLDS must be strictly ascending (%d after %d)",
				c.LevelThresholds[i], c.LevelThresholds[i-1])
		}
	}
	if c.LeaderboardLimit <= 0 {
		return errors.New("LEADERBOARD_LIMIT must be positive")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	return nil
}
