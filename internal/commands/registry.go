package commands

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"archipelalog/internal/discord"

	"github.com/rs/zerolog/log"
)

const moderatorRole = "Moderator"

var commandName = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

// Handler runs a command and returns the text of the reply.
type Handler func(ctx context.Context, inv Invocation) (string, error)

type Option struct {
	Name        string
	Description string
	Type        discord.OptionType
	Required    bool
}

type Command struct {
	Name        string
	Description string
	Moderator   bool
	Options     []Option
	Handler     Handler
}

type Response struct {
	Text  string
	Error bool
}

// Roles looks up role names for the moderator check.
type Roles interface {
	GuildRoleNames(ctx context.Context, guildID string) (map[string]string, error)
}

type Registry struct {
	roles    Roles
	commands map[string]Command
	order    []string
}

func NewRegistry(roles Roles) *Registry {
	return &Registry{roles: roles, commands: make(map[string]Command)}
}

func (r *Registry) Register(cmd Command) error {
	if !commandName.MatchString(cmd.Name) {
		return fmt.Errorf("command name %q is invalid", cmd.Name)
	}
	if cmd.Handler == nil {
		return fmt.Errorf("command %q has no handler", cmd.Name)
	}
	if _, exists := r.commands[cmd.Name]; exists {
		return fmt.Errorf("command %q already registered", cmd.Name)
	}
	seen := make(map[string]bool, len(cmd.Options))
	optional := false
	for _, opt := range cmd.Options {
		if !commandName.MatchString(opt.Name) {
			return fmt.Errorf("command %q: option name %q is invalid", cmd.Name, opt.Name)
		}
		if seen[opt.Name] {
			return fmt.Errorf("command %q: duplicate option %q", cmd.Name, opt.Name)
		}
		seen[opt.Name] = true
		if opt.Required && optional {
			return fmt.Errorf("command %q: required option %q follows an optional one", cmd.Name, opt.Name)
		}
		if !opt.Required {
			optional = true
		}
	}
	r.commands[cmd.Name] = cmd
	r.order = append(r.order, cmd.Name)
	return nil
}

// Dispatch runs the named command. Every outcome, failures included, is
// turned into text for the caller.
func (r *Registry) Dispatch(ctx context.Context, inv Invocation) Response {
	cmd, ok := r.commands[inv.Name]
	if !ok {
		return Response{Text: fmt.Sprintf("Unknown command /%s.", inv.Name), Error: true}
	}
	if inv.GuildID == "" {
		return Response{Text: msgNeedsGuild, Error: true}
	}
	if inv.ChannelID == "" {
		return Response{Text: msgNeedsChannel, Error: true}
	}
	if cmd.Moderator && !r.isModerator(ctx, inv) {
		return Response{Text: fmt.Sprintf("You need to be a moderator to use /%s.", cmd.Name), Error: true}
	}
	for _, opt := range cmd.Options {
		if _, ok := inv.Options[opt.Name]; opt.Required && !ok {
			return Response{Text: fmt.Sprintf("Missing required option %q.", opt.Name), Error: true}
		}
	}

	text, err := cmd.Handler(ctx, inv)
	if err != nil {
		log.Warn().Err(err).Str("command", cmd.Name).Str("guild_id", inv.GuildID).Str("channel_id", inv.ChannelID).Msg("command failed")
		return Response{Text: renderError(cmd.Name, err), Error: true}
	}
	log.Info().Str("command", cmd.Name).Str("guild_id", inv.GuildID).Str("channel_id", inv.ChannelID).Str("caller", inv.Caller.ID).Msg("command handled")
	return Response{Text: text}
}

func (r *Registry) isModerator(ctx context.Context, inv Invocation) bool {
	if inv.Permissions&(discord.PermissionAdministrator|discord.PermissionManageGuild) != 0 {
		return true
	}
	if r.roles == nil || len(inv.RoleIDs) == 0 {
		return false
	}
	names, err := r.roles.GuildRoleNames(ctx, inv.GuildID)
	if err != nil {
		log.Warn().Err(err).Str("guild_id", inv.GuildID).Msg("role lookup failed")
		return false
	}
	for _, id := range inv.RoleIDs {
		if strings.EqualFold(names[id], moderatorRole) {
			return true
		}
	}
	return false
}

// ApplicationCommands returns the registered commands in registration order.
func (r *Registry) ApplicationCommands() []discord.ApplicationCommand {
	out := make([]discord.ApplicationCommand, 0, len(r.order))
	for _, name := range r.order {
		cmd := r.commands[name]
		opts := make([]discord.CommandOption, 0, len(cmd.Options))
		for _, o := range cmd.Options {
			opts = append(opts, discord.CommandOption{Type: o.Type, Name: o.Name, Description: o.Description, Required: o.Required})
		}
		out = append(out, discord.NewChatCommand(cmd.Name, cmd.Description, opts))
	}
	return out
}
