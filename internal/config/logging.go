package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pixil98/go-errors"
	"github.com/rs/zerolog"
)

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
	File        string `env:"LOG_FILE"`
	MaxMB       int    `env:"LOG_MAX_MB" envDefault:"10"`
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func (c LogConfig) Validate() error {
	el := errors.NewErrorList()
	if v := strings.TrimSpace(c.Level); v != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(v)); err != nil {
			el.Add(fmt.Errorf("LOG_LEVEL: %w", err))
		}
	}
	if c.SampleEvery < 0 {
		el.Add(fmt.Errorf("LOG_SAMPLE_EVERY must not be negative"))
	}
	if strings.TrimSpace(c.File) != "" && c.MaxMB <= 0 {
		el.Add(fmt.Errorf("LOG_MAX_MB must be positive when LOG_FILE is set"))
	}
	return el.Err()
}
