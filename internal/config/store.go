package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
)

type StoreConfig struct {
	Backend      string `env:"STORE_BACKEND" envDefault:"file"`
	SessionsPath string `env:"SESSIONS_PATH" envDefault:"Sessions.json"`
	PostgresDSN  string `env:"POSTGRES_DSN"`
}

func LoadStore() (StoreConfig, error) {
	var cfg StoreConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func (c StoreConfig) Validate() error {
	switch strings.ToLower(c.Backend) {
	case StoreBackendFile:
		if strings.TrimSpace(c.SessionsPath) == "" {
			return fmt.Errorf("SESSIONS_PATH must not be empty for the file backend")
		}
	case StoreBackendPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Backend)
	}
	return nil
}
