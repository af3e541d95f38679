package commands

import (
	"math"

	"archipelalog/internal/discord"
)

// Invocation is one slash command call with its options flattened by name.
type Invocation struct {
	Name        string
	Token       string
	GuildID     string
	ChannelID   string
	ChannelName string
	Caller      discord.User
	Permissions uint64
	RoleIDs     []string
	Options     map[string]any
	Users       map[string]discord.User
}

// FromInteraction flattens an application command interaction.
func FromInteraction(i discord.Interaction) Invocation {
	inv := Invocation{
		Token:     i.Token,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Caller:    i.Caller(),
		Options:   map[string]any{},
		Users:     map[string]discord.User{},
	}
	if i.Channel != nil {
		if inv.ChannelID == "" {
			inv.ChannelID = i.Channel.ID
		}
		inv.ChannelName = i.Channel.Name
	}
	if i.Member != nil {
		inv.Permissions = i.Member.PermissionBits()
		inv.RoleIDs = i.Member.Roles
	}
	if i.Data == nil {
		return inv
	}
	inv.Name = i.Data.Name
	for _, opt := range i.Data.Options {
		inv.Options[opt.Name] = opt.Value
	}
	if i.Data.Resolved != nil {
		for id, u := range i.Data.Resolved.Users {
			if u.ID == "" {
				u.ID = id
			}
			inv.Users[id] = u
		}
	}
	return inv
}

func (inv Invocation) String(name string) (string, bool) {
	v, ok := inv.Options[name].(string)
	return v, ok
}

// Int accepts JSON numbers, which decode as float64, as long as they are whole.
func (inv Invocation) Int(name string) (int, bool) {
	switch v := inv.Options[name].(type) {
	case int:
		return v, true
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}

func (inv Invocation) Bool(name string) (bool, bool) {
	v, ok := inv.Options[name].(bool)
	return v, ok
}

// User resolves a user option. The option value is the user id; the rest comes
// from the resolved data of the interaction.
func (inv Invocation) User(name string) (discord.User, bool) {
	id, ok := inv.Options[name].(string)
	if !ok || id == "" {
		return discord.User{}, false
	}
	if u, ok := inv.Users[id]; ok {
		return u, true
	}
	return discord.User{ID: id}, true
}
