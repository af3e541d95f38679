package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"archipelalog/internal/bridge"
	"archipelalog/internal/discord"
)

const (
	msgNeedsGuild    = "This command should be called in a discord server"
	msgNeedsChannel  = "This command should be called in a server channel."
	msgNoConnection  = "This channel has no connection information. Please ask a moderator to set it up for you."
	msgNotConnected  = "This channel is not connected to Archipelago right now. Run /reconnect first."
	msgSessionClosed = "All users have been dettached. The session was closed."
)

// Coordinator is the part of the bridge the commands drive.
type Coordinator interface {
	SetConnectionInfo(ctx context.Context, guildID, channelID, host string, port int) error
	DetachChannel(ctx context.Context, guildID, channelID string) error
	Reconnect(ctx context.Context, guildID, channelID string) error
	BindUser(ctx context.Context, guildID, channelID, slot string, notify bool, identityID string) error
	UnbindUser(ctx context.Context, guildID, channelID, identityID string) (bool, error)
	Say(ctx context.Context, guildID, channelID, text string) error
	Status(ctx context.Context, guildID, channelID string) (bridge.ChannelStatus, error)
}

// RegisterBuiltins adds the bot's slash commands to r.
func RegisterBuiltins(r *Registry, coord Coordinator) error {
	b := builtins{coord: coord, registry: r}
	cmds := []Command{
		{
			Name:        "setup",
			Description: "Sets the connection data of the archipelago server.",
			Moderator:   true,
			Options: []Option{
				{Name: "hostname", Description: "IP of the server you want to connect to", Type: discord.OptionString, Required: true},
				{Name: "port", Description: "Port of the server you want to connect to", Type: discord.OptionInteger, Required: true},
			},
			Handler: b.setup,
		},
		{
			Name:        "disconnect",
			Description: "Disconnects this channel from Archipelago. This channel will no longer receive updates.",
			Moderator:   true,
			Handler:     b.disconnect,
		},
		{
			Name:        "reconnect",
			Description: "Reconnects to the archipelago session.",
			Handler:     b.reconnect,
		},
		{
			Name:        "slot",
			Description: "Ties the user to the archipelago client and adds the slot",
			Options: []Option{
				{Name: "slot", Description: "Slot to tie to in the Archipelago client", Type: discord.OptionString, Required: true},
				{Name: "notify", Description: "Whether or not to notify the user on discord", Type: discord.OptionBoolean},
				{Name: "user", Description: "User to tie to this client. If left empty, it will be the current caller", Type: discord.OptionUser},
			},
			Handler: b.slot,
		},
		{
			Name:        "detach",
			Description: "Detaches the discord user from the registered slots in this channel",
			Options: []Option{
				{Name: "user", Description: "User to detach. If left empty, it will be the current caller", Type: discord.OptionUser},
			},
			Handler: b.detach,
		},
		{
			Name:        "say",
			Description: "Sends a chat message to the Archipelago server.",
			Moderator:   true,
			Options: []Option{
				{Name: "text", Description: "Message to send", Type: discord.OptionString, Required: true},
			},
			Handler: b.say,
		},
		{
			Name:        "status",
			Description: "Shows the Archipelago connection of this channel.",
			Handler:     b.status,
		},
	}
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

type builtins struct {
	coord    Coordinator
	registry *Registry
}

func (b builtins) setup(ctx context.Context, inv Invocation) (string, error) {
	host, _ := inv.String("hostname")
	port, ok := inv.Int("port")
	if !ok {
		return "", NewUserError("The port must be a whole number.")
	}
	if err := b.coord.SetConnectionInfo(ctx, inv.GuildID, inv.ChannelID, host, port); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully setup %s connection information.", channelLabel(inv)), nil
}

func (b builtins) disconnect(ctx context.Context, inv Invocation) (string, error) {
	if err := b.coord.DetachChannel(ctx, inv.GuildID, inv.ChannelID); err != nil {
		return "", err
	}
	return "Successfully disconnected this channel from Archipelago.", nil
}

func (b builtins) reconnect(ctx context.Context, inv Invocation) (string, error) {
	if err := b.coord.Reconnect(ctx, inv.GuildID, inv.ChannelID); err != nil {
		return "", err
	}
	return "Reconnected to Archipelago.", nil
}

func (b builtins) slot(ctx context.Context, inv Invocation) (string, error) {
	slot, _ := inv.String("slot")
	notify, _ := inv.Bool("notify")
	target, err := b.targetUser(ctx, inv)
	if err != nil {
		return "", err
	}
	if err := b.coord.BindUser(ctx, inv.GuildID, inv.ChannelID, slot, notify, target.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Slot %s was assigned.", strings.TrimSpace(slot)), nil
}

func (b builtins) detach(ctx context.Context, inv Invocation) (string, error) {
	target, err := b.targetUser(ctx, inv)
	if err != nil {
		return "", err
	}
	closed, err := b.coord.UnbindUser(ctx, inv.GuildID, inv.ChannelID, target.ID)
	var nf *bridge.NotFoundError
	if errors.As(err, &nf) && nf.What == "identity" {
		return "", NewUserError(fmt.Sprintf("No slot is attached to user %s", userLabel(target)))
	}
	if err != nil {
		return "", err
	}
	text := fmt.Sprintf("Dettached slots for user %s in this channel.", userLabel(target))
	if closed {
		text += " " + msgSessionClosed
	}
	return text, nil
}

func (b builtins) say(ctx context.Context, inv Invocation) (string, error) {
	text, _ := inv.String("text")
	if err := b.coord.Say(ctx, inv.GuildID, inv.ChannelID, text); err != nil {
		return "", err
	}
	return "Message sent to Archipelago.", nil
}

func (b builtins) status(ctx context.Context, inv Invocation) (string, error) {
	st, err := b.coord.Status(ctx, inv.GuildID, inv.ChannelID)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	state := "disconnected"
	if st.Connected {
		state = "connected"
	}
	fmt.Fprintf(&sb, "Archipelago %s:%d (%s)", st.Hostname, st.Port, state)
	if len(st.Slots) == 0 {
		sb.WriteString("\nNo slots are assigned yet.")
	}
	for _, s := range st.Slots {
		owner := "unassigned"
		if s.Attached {
			owner = "<@" + s.IdentityID + ">"
			if s.Notify {
				owner += ", notified"
			}
		}
		fmt.Fprintf(&sb, "\n- %s: %s, %d items", s.Slot, owner, s.Items)
	}
	return sb.String(), nil
}

// targetUser is the user option when given, the caller otherwise. Acting on
// someone else requires moderator rights.
func (b builtins) targetUser(ctx context.Context, inv Invocation) (discord.User, error) {
	u, ok := inv.User("user")
	if !ok || u.ID == inv.Caller.ID {
		return inv.Caller, nil
	}
	if !b.registry.isModerator(ctx, inv) {
		return discord.User{}, NewUserError(fmt.Sprintf("You need to be a moderator to use /%s for another user.", inv.Name))
	}
	return u, nil
}

func channelLabel(inv Invocation) string {
	if inv.ChannelName != "" {
		return inv.ChannelName
	}
	return "<#" + inv.ChannelID + ">"
}

func userLabel(u discord.User) string {
	if name := u.DisplayName(); name != "" {
		return name
	}
	return "<@" + u.ID + ">"
}

func renderError(command string, err error) string {
	var (
		userErr  *UserError
		nf       *bridge.NotFoundError
		conflict *bridge.ConflictError
		connErr  *bridge.ConnectionError
	)
	switch {
	case errors.As(err, &userErr):
		return userErr.Message
	case errors.As(err, &conflict):
		holder := conflict.HolderName
		if holder == "" {
			holder = "<@" + conflict.HolderID + ">"
		}
		return fmt.Sprintf("%s is already tied to %s.", conflict.Slot, holder)
	case errors.As(err, &nf):
		return msgNoConnection
	case errors.As(err, &connErr):
		return bridge.MsgLoginFailed
	case errors.Is(err, bridge.ErrNotConnected):
		return msgNotConnected
	case errors.Is(err, bridge.ErrInvalidInput):
		detail := strings.TrimPrefix(err.Error(), bridge.ErrInvalidInput.Error()+": ")
		return "Invalid input: " + detail + "."
	default:
		return fmt.Sprintf("Something went wrong while running /%s.", command)
	}
}
