package discord

import (
	"strconv"
	"strings"
)

type InteractionType int

const (
	InteractionPing               InteractionType = 1
	InteractionApplicationCommand InteractionType = 2
)

type ResponseType int

const (
	ResponsePong                   ResponseType = 1
	ResponseChannelMessage         ResponseType = 4
	ResponseDeferredChannelMessage ResponseType = 5
)

type OptionType int

const (
	OptionString  OptionType = 3
	OptionInteger OptionType = 4
	OptionBoolean OptionType = 5
	OptionUser    OptionType = 6
)

const (
	PermissionAdministrator uint64 = 1 << 3
	PermissionManageGuild   uint64 = 1 << 5
)

const chatInputCommand = 1

type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name,omitempty"`
}

// DisplayName prefers the global display name over the account name.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.GlobalName) != "" {
		return u.GlobalName
	}
	return u.Username
}

type Member struct {
	User        *User    `json:"user,omitempty"`
	Nick        string   `json:"nick,omitempty"`
	Roles       []string `json:"roles"`
	Permissions string   `json:"permissions,omitempty"`
}

// PermissionBits parses the member's computed permissions. Discord sends them
// as a decimal string.
func (m Member) PermissionBits() uint64 {
	v, err := strconv.ParseUint(m.Permissions, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Resolved struct {
	Users   map[string]User   `json:"users,omitempty"`
	Members map[string]Member `json:"members,omitempty"`
}

type InteractionOption struct {
	Name    string              `json:"name"`
	Type    OptionType          `json:"type"`
	Value   any                 `json:"value,omitempty"`
	Options []InteractionOption `json:"options,omitempty"`
}

type InteractionData struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Options  []InteractionOption `json:"options,omitempty"`
	Resolved *Resolved           `json:"resolved,omitempty"`
}

type Interaction struct {
	ID            string           `json:"id"`
	ApplicationID string           `json:"application_id"`
	Type          InteractionType  `json:"type"`
	Data          *InteractionData `json:"data,omitempty"`
	GuildID       string           `json:"guild_id,omitempty"`
	ChannelID     string           `json:"channel_id,omitempty"`
	Channel       *Channel         `json:"channel,omitempty"`
	Member        *Member          `json:"member,omitempty"`
	User          *User            `json:"user,omitempty"`
	Token         string           `json:"token"`
}

// Caller is the invoking user, taken from the member in guilds and from the
// top-level user in DMs.
func (i Interaction) Caller() User {
	if i.Member != nil && i.Member.User != nil {
		return *i.Member.User
	}
	if i.User != nil {
		return *i.User
	}
	return User{}
}

type ResponseData struct {
	Content string `json:"content,omitempty"`
	Flags   int    `json:"flags,omitempty"`
}

type InteractionResponse struct {
	Type ResponseType  `json:"type"`
	Data *ResponseData `json:"data,omitempty"`
}

type CommandOption struct {
	Type        OptionType `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Required    bool       `json:"required,omitempty"`
}

type ApplicationCommand struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Type         int             `json:"type"`
	Options      []CommandOption `json:"options,omitempty"`
	DMPermission bool            `json:"dm_permission"`
}

// NewChatCommand builds a guild-only slash command definition.
func NewChatCommand(name, description string, options []CommandOption) ApplicationCommand {
	return ApplicationCommand{
		Name:        name,
		Description: description,
		Type:        chatInputCommand,
		Options:     options,
	}
}
