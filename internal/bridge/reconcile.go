package bridge

import (
	"context"
	"fmt"
	"strings"

	"archipelalog/internal/archipelago"
	"archipelalog/internal/store"

	"github.com/rs/zerolog/log"
)

const (
	MsgLoginFailed     = "Failed to login. The server might be closed. Please, run /reconnect when the server is open."
	msgReconnected     = "Reconnected to Archipelago."
	msgWhileBotWasGone = "While the bot was gone, the next important items were found:"
)

// reconcile scouts the checked locations of every slot known when it starts
// and records whatever the ledgers do not have yet. A slot that cannot be
// scouted is skipped.
func (c *Coordinator) reconcile(ctx context.Context, b *store.ChannelBinding) []store.ItemRecord {
	slots := make([]string, 0, len(b.Users))
	for _, u := range b.Users {
		slots = append(slots, u.SlotName)
	}
	var found []store.ItemRecord
	for _, slot := range slots {
		items, err := c.dialer.FetchCheckedLocations(ctx, b.Hostname, b.Port, slot)
		if err != nil {
			log.Warn().Err(err).Str("channel_id", b.ChannelID).Str("slot", slot).Msg("scouting slot failed")
			continue
		}
		found = append(found, recordScouted(b, items)...)
	}
	metricReconcileItemsTotal.Add(int64(len(found)))
	return found
}

func recordScouted(b *store.ChannelBinding, items []archipelago.ScoutedItem) []store.ItemRecord {
	var added []store.ItemRecord
	for _, it := range items {
		rec := store.ItemRecord{
			Sender:   it.Sender,
			Receiver: it.Receiver,
			ItemName: it.ItemName,
			Location: it.LocationName,
			Flags:    store.ItemFlags(it.Flags),
		}
		if b.EnsureUser(it.Receiver).Record(rec) {
			added = append(added, rec)
		}
	}
	return added
}

type receiverGroup struct {
	receiver string
	items    []store.ItemRecord
}

func groupByReceiver(records []store.ItemRecord) []receiverGroup {
	var groups []receiverGroup
	index := make(map[string]int)
	for _, rec := range records {
		i, ok := index[rec.Receiver]
		if !ok {
			i = len(groups)
			index[rec.Receiver] = i
			groups = append(groups, receiverGroup{receiver: rec.Receiver})
		}
		groups[i].items = append(groups[i].items, rec)
	}
	return groups
}

// announceReconciliation posts a connection summary followed by one message
// per receiving slot.
func (c *Coordinator) announceReconciliation(ctx context.Context, b *store.ChannelBinding, found []store.ItemRecord) {
	c.send(ctx, b, c.sessionSummary(ctx, b))
	for _, g := range groupByReceiver(found) {
		important := false
		for _, rec := range g.items {
			if rec.Flags.Important() {
				important = true
				break
			}
		}
		var sb strings.Builder
		sb.WriteString(msgWhileBotWasGone)
		fmt.Fprintf(&sb, "\n__%s__", c.party(ctx, b, g.receiver).mentionOrLabel(important))
		for _, rec := range g.items {
			item := rec.ItemName
			if rec.Flags.Important() {
				item = "**" + item + "**"
			}
			fmt.Fprintf(&sb, "\n- %s from %s at %s", item, rec.Sender, rec.Location)
		}
		c.send(ctx, b, sb.String())
	}
}

func (c *Coordinator) sessionSummary(ctx context.Context, b *store.ChannelBinding) string {
	var sb strings.Builder
	sb.WriteString(msgReconnected)
	fmt.Fprintf(&sb, "\nConnection: %s:%d", b.Hostname, b.Port)
	for _, u := range b.Users {
		if !u.Attached {
			continue
		}
		name := c.displayName(ctx, u.IdentityID)
		if name == "" {
			name = u.IdentityID
		}
		fmt.Fprintf(&sb, "\n- %s: %s", u.SlotName, name)
	}
	return sb.String()
}

func (c *Coordinator) send(ctx context.Context, b *store.ChannelBinding, text string) {
	if err := c.chat.SendChannelMessage(ctx, b.GuildID, b.ChannelID, text, false); err != nil {
		log.Error().Err(err).Str("guild_id", b.GuildID).Str("channel_id", b.ChannelID).Msg("send channel message failed")
	}
}
