package discord

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"archipelalog/internal/config"

	"github.com/rs/zerolog/log"
)

const (
	maxMessageLength = 2000
	errorEmbedTitle  = "Something failed while completing action"
	errorEmbedColor  = 0xE74C3C
	roleCacheTTL     = 5 * time.Minute
)

type embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

type messagePayload struct {
	Content         string          `json:"content,omitempty"`
	Embeds          []embed         `json:"embeds,omitempty"`
	AllowedMentions allowedMentions `json:"allowed_mentions"`
}

type allowedMentions struct {
	Parse []string `json:"parse"`
}

type role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type guildRoles struct {
	names     map[string]string
	fetchedAt time.Time
}

// Client talks to the Discord REST API as the bot user.
type Client struct {
	http          *HTTPClient
	applicationID string
	now           func() time.Time

	mu    sync.Mutex
	names map[string]string
	roles map[string]guildRoles
}

func NewClient(cfg config.BotConfig) *Client {
	return newClient(NewHTTPClient(cfg.APIBase, cfg.Token(), cfg.Timeout), cfg.ApplicationID)
}

func newClient(h *HTTPClient, applicationID string) *Client {
	return &Client{
		http:          h,
		applicationID: applicationID,
		now:           time.Now,
		names:         map[string]string{},
		roles:         map[string]guildRoles{},
	}
}

// SendChannelMessage posts text to the channel, split into as many messages as
// the length limit requires. Emphasized text goes out as an error embed.
func (c *Client) SendChannelMessage(ctx context.Context, guildID, channelID, text string, emphasized bool) error {
	path := "/channels/" + url.PathEscape(channelID) + "/messages"
	for _, chunk := range splitContent(text, maxMessageLength) {
		payload := messagePayload{AllowedMentions: allowedMentions{Parse: []string{"users"}}}
		if emphasized {
			payload.Embeds = []embed{{Title: errorEmbedTitle, Description: chunk, Color: errorEmbedColor}}
		} else {
			payload.Content = chunk
		}
		if err := c.http.DoJSON(ctx, http.MethodPost, path, payload, nil); err != nil {
			return err
		}
	}
	log.Debug().Str("guild_id", guildID).Str("channel_id", channelID).Bool("emphasized", emphasized).Msg("discord message sent")
	return nil
}

func (c *Client) ResolveDisplayName(ctx context.Context, userID string) (string, error) {
	c.mu.Lock()
	name, ok := c.names[userID]
	c.mu.Unlock()
	if ok {
		return name, nil
	}

	var u User
	if err := c.http.DoJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, &u); err != nil {
		return "", err
	}
	name = u.DisplayName()
	c.mu.Lock()
	c.names[userID] = name
	c.mu.Unlock()
	return name, nil
}

// RememberUser seeds the name cache from a user seen in an interaction.
func (c *Client) RememberUser(u User) {
	if u.ID == "" || u.DisplayName() == "" {
		return
	}
	c.mu.Lock()
	c.names[u.ID] = u.DisplayName()
	c.mu.Unlock()
}

func (c *Client) Mention(userID string) string {
	return "<@" + userID + ">"
}

// GuildRoleNames maps role ids to names for the guild.
func (c *Client) GuildRoleNames(ctx context.Context, guildID string) (map[string]string, error) {
	c.mu.Lock()
	cached, ok := c.roles[guildID]
	c.mu.Unlock()
	if ok && c.now().Sub(cached.fetchedAt) < roleCacheTTL {
		return cached.names, nil
	}

	var roles []role
	if err := c.http.DoJSON(ctx, http.MethodGet, "/guilds/"+url.PathEscape(guildID)+"/roles", nil, &roles); err != nil {
		return nil, err
	}
	names := make(map[string]string, len(roles))
	for _, r := range roles {
		names[r.ID] = r.Name
	}
	c.mu.Lock()
	c.roles[guildID] = guildRoles{names: names, fetchedAt: c.now()}
	c.mu.Unlock()
	return names, nil
}

// EditOriginalResponse replaces the deferred answer of an interaction.
func (c *Client) EditOriginalResponse(ctx context.Context, interactionToken, content string) error {
	chunks := splitContent(content, maxMessageLength)
	path := "/webhooks/" + url.PathEscape(c.applicationID) + "/" + url.PathEscape(interactionToken) + "/messages/@original"
	payload := messagePayload{Content: chunks[0], AllowedMentions: allowedMentions{Parse: []string{}}}
	if err := c.http.DoJSON(ctx, http.MethodPatch, path, payload, nil); err != nil {
		return err
	}
	followup := "/webhooks/" + url.PathEscape(c.applicationID) + "/" + url.PathEscape(interactionToken)
	for _, chunk := range chunks[1:] {
		payload := messagePayload{Content: chunk, AllowedMentions: allowedMentions{Parse: []string{}}}
		if err := c.http.DoJSON(ctx, http.MethodPost, followup, payload, nil); err != nil {
			return err
		}
	}
	return nil
}

// RegisterCommands overwrites the application's commands, globally or for a
// single guild when guildID is set.
func (c *Client) RegisterCommands(ctx context.Context, guildID string, cmds []ApplicationCommand) error {
	path := "/applications/" + url.PathEscape(c.applicationID) + "/commands"
	if guildID != "" {
		path = "/applications/" + url.PathEscape(c.applicationID) + "/guilds/" + url.PathEscape(guildID) + "/commands"
	}
	if err := c.http.DoJSON(ctx, http.MethodPut, path, cmds, nil); err != nil {
		return err
	}
	log.Info().Str("guild_id", guildID).Int("commands", len(cmds)).Msg("application commands registered")
	return nil
}

// splitContent cuts text into chunks of at most limit runes, breaking on line
// boundaries where it can. It always returns at least one chunk.
func splitContent(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	for _, line := range strings.Split(text, "\n") {
		for utf8.RuneCountInString(line) > limit {
			flush()
			runes := []rune(line)
			chunks = append(chunks, string(runes[:limit]))
			line = string(runes[limit:])
		}
		n := utf8.RuneCountInString(line)
		sep := 0
		if curLen > 0 {
			sep = 1
		}
		if curLen+sep+n > limit {
			flush()
			sep = 0
		}
		if sep == 1 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
		curLen += sep + n
	}
	flush()
	if len(chunks) == 0 {
		return []string{""}
	}
	return chunks
}
