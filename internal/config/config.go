package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the service configuration, loaded from the environment.
type Config struct {
	Addr     string `env:"FAIRSHARE_ADDR" envDefault:":8080"`
	DBPath   string `env:"FAIRSHARE_DB_PATH" envDefault:"fairshare.db"`
	LogLevel string `env:"FAIRSHARE_LOG_LEVEL" envDefault:"info"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
