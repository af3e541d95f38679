package main

import (
	"context"
	"fmt"
	"strings"

	"archipelalog/internal/bridge"
	"archipelalog/internal/commands"
	"archipelalog/internal/config"
	"archipelalog/internal/discord"
	"archipelalog/internal/logging"
	"archipelalog/internal/store"

	"github.com/rs/zerolog/log"
)

func loadConfig() (config.AppConfig, error) {
	cfg, err := config.LoadApp()
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.Log)
	if err := cfg.Validate(); err != nil {
		return config.AppConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openPersister returns the configured backend and a func releasing it.
func openPersister(ctx context.Context, cfg config.StoreConfig) (store.Persister, func(), error) {
	switch strings.ToLower(cfg.Backend) {
	case config.StoreBackendPostgres:
		p, err := store.NewPostgresPersister(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := p.EnsureSchema(ctx); err != nil {
			p.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		log.Info().Str("backend", cfg.Backend).Msg("store ready")
		return p, p.Close, nil
	default:
		log.Info().Str("backend", config.StoreBackendFile).Str("path", cfg.SessionsPath).Msg("store ready")
		return store.NewFilePersister(cfg.SessionsPath), func() {}, nil
	}
}

// newRegistry builds the command table. A nil coordinator is enough when only
// the definitions are needed.
func newRegistry(client *discord.Client, coord *bridge.Coordinator) (*commands.Registry, error) {
	r := commands.NewRegistry(client)
	var c commands.Coordinator
	if coord != nil {
		c = coord
	}
	if err := commands.RegisterBuiltins(r, c); err != nil {
		return nil, err
	}
	return r, nil
}
