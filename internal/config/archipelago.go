package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ArchipelagoConfig struct {
	DialTimeout    time.Duration `env:"AP_DIAL_TIMEOUT" envDefault:"10s"`
	RequestTimeout time.Duration `env:"AP_REQUEST_TIMEOUT" envDefault:"15s"`
	Tags           []string      `env:"AP_TAGS" envDefault:"TextOnly,AP" envSeparator:","`
	EventBuffer    int           `env:"AP_EVENT_BUFFER" envDefault:"256"`
}

func LoadArchipelago() (ArchipelagoConfig, error) {
	var cfg ArchipelagoConfig
	err := env.Parse(&cfg)
	return cfg, err
}
