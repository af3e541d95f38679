// archipelalog relays Archipelago multiworld item finds into Discord channels.
//
// Usage:
//
//	archipelalog                        - Same as serve
//	archipelalog serve                  - Run the bot and its interactions endpoint
//	archipelalog register-commands      - Publish the slash commands to Discord
//
// Configuration comes from the environment, see internal/config.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "archipelalog",
	Short: "Archipelago item log bot for Discord",
	Long: `archipelalog connects Discord channels to Archipelago multiworld sessions
and posts every item found by the slots tied to a channel.

Examples:
  archipelalog serve
  archipelalog register-commands --guild 123456789012345678`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(registerCmd)
}
