package main

import (
	"context"
	"time"

	"archipelalog/internal/discord"

	"github.com/spf13/cobra"
)

var flagGuildID string

var registerCmd = &cobra.Command{
	Use:   "register-commands",
	Short: "Publish the slash commands to Discord",
	Long: `Overwrite the application's slash commands with the ones this build knows.
Guild commands update instantly; global ones can take up to an hour.

Examples:
  archipelalog register-commands
  archipelalog register-commands --guild 123456789012345678`,
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&flagGuildID, "guild", "", "Register for this guild only (defaults to DISCORD_GUILD_ID)")
}

func runRegister(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	guildID := flagGuildID
	if guildID == "" {
		guildID = cfg.Bot.GuildID
	}

	client := discord.NewClient(cfg.Bot)
	registry, err := newRegistry(client, nil)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	return client.RegisterCommands(ctx, guildID, registry.ApplicationCommands())
}
