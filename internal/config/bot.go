package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pixil98/go-errors"
)

type BotConfig struct {
	BotToken      string        `env:"DISCORD_BOT_TOKEN"`
	BotTokenFile  string        `env:"DISCORD_BOT_TOKEN_FILE,file"`
	ApplicationID string        `env:"DISCORD_APPLICATION_ID"`
	PublicKey     string        `env:"DISCORD_PUBLIC_KEY"`
	APIBase       string        `env:"DISCORD_API_BASE" envDefault:"https://discord.com/api/v10"`
	Timeout       time.Duration `env:"DISCORD_TIMEOUT" envDefault:"5s"`
	GuildID       string        `env:"DISCORD_GUILD_ID"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}

// Token returns the bot token, preferring DISCORD_BOT_TOKEN over the contents
// of DISCORD_BOT_TOKEN_FILE.
func (c BotConfig) Token() string {
	if v := strings.TrimSpace(c.BotToken); v != "" {
		return v
	}
	return strings.TrimSpace(c.BotTokenFile)
}

func (c BotConfig) Validate() error {
	el := errors.NewErrorList()
	if c.Token() == "" {
		el.Add(fmt.Errorf("bot token is required: set DISCORD_BOT_TOKEN or point DISCORD_BOT_TOKEN_FILE at a file containing it"))
	}
	if strings.TrimSpace(c.ApplicationID) == "" {
		el.Add(fmt.Errorf("DISCORD_APPLICATION_ID is required"))
	}
	if strings.TrimSpace(c.PublicKey) == "" {
		el.Add(fmt.Errorf("DISCORD_PUBLIC_KEY is required"))
	}
	return el.Err()
}
