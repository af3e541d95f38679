package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8080"`
	AdminAPIKey    string        `env:"ADMIN_API_KEY"`
	CommandTimeout time.Duration `env:"COMMAND_TIMEOUT" envDefault:"2m"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
