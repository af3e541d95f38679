package config

import "github.com/pixil98/go-errors"

type AppConfig struct {
	Bot         BotConfig
	Store       StoreConfig
	Archipelago ArchipelagoConfig
	Server      ServerConfig
	Log         LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	botCfg, err := LoadBot()
	if err != nil {
		return AppConfig{}, err
	}
	storeCfg, err := LoadStore()
	if err != nil {
		return AppConfig{}, err
	}
	apCfg, err := LoadArchipelago()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Bot:         botCfg,
		Store:       storeCfg,
		Archipelago: apCfg,
		Server:      serverCfg,
		Log:         logCfg,
	}, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c AppConfig) Validate() error {
	el := errors.NewErrorList()
	el.Add(c.Log.Validate())
	el.Add(c.Bot.Validate())
	el.Add(c.Store.Validate())
	return el.Err()
}
