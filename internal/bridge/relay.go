package bridge

import (
	"context"

	"archipelalog/internal/archipelago"
	"archipelalog/internal/store"

	"github.com/rs/zerolog/log"
)

func (c *Coordinator) handleItemEvent(sessionID string, link *liveLink, ev archipelago.ItemEvent) {
	err := c.store.WithExclusiveAccess(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		b := tx.FindBySession(sessionID)
		if b == nil {
			link.cancel()
			metricRelayDroppedTotal.Add(1)
			log.Debug().Str("session_id", sessionID).Str("item", ev.ItemName).Msg("event from detached session dropped")
			return nil
		}
		c.relay(ctx, tx, b, ev)
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("handle item event failed")
	}
}

func (c *Coordinator) relay(ctx context.Context, tx *store.Tx, b *store.ChannelBinding, ev archipelago.ItemEvent) {
	if ev.IsHint() {
		metricHintsSuppressedTotal.Add(1)
		return
	}
	if recv := b.User(ev.Receiver); recv != nil && recv.Knows(ev.ItemName) {
		metricRelayDuplicateTotal.Add(1)
		log.Debug().Str("channel_id", b.ChannelID).Str("slot", ev.Receiver).Str("item", ev.ItemName).Msg("item already in ledger")
		return
	}

	rec := store.ItemRecord{
		Sender:   ev.Sender,
		Receiver: ev.Receiver,
		ItemName: ev.ItemName,
		Location: ev.Location,
		Flags:    store.ItemFlags(ev.Flags),
	}
	text := FormatItemNotice(ItemNotice{
		Sender:   rec.Sender,
		Receiver: rec.Receiver,
		ItemName: rec.ItemName,
		Location: rec.Location,
		Flags:    rec.Flags,
	}, c.party(ctx, b, rec.Sender), c.party(ctx, b, rec.Receiver))

	if err := c.chat.SendChannelMessage(ctx, b.GuildID, b.ChannelID, text, false); err != nil {
		metricRelayFailedTotal.Add(1)
		log.Error().Err(err).Str("guild_id", b.GuildID).Str("channel_id", b.ChannelID).Str("item", rec.ItemName).Msg("relay item event failed")
		return
	}
	metricRelaySentTotal.Add(1)

	b.EnsureUser(rec.Sender)
	b.EnsureUser(rec.Receiver).Record(rec)
	c.save(ctx, tx)
}

func (c *Coordinator) handleSessionClosed(sessionID, reason string) {
	metricSessionsClosedTotal.Add(1)
	_ = c.store.WithExclusiveAccess(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		b := tx.FindBySession(sessionID)
		if b == nil {
			return nil
		}
		log.Warn().Str("guild_id", b.GuildID).Str("channel_id", b.ChannelID).Str("session_id", sessionID).Str("reason", reason).Msg("archipelago session closed")
		c.closeSession(ctx, b)
		return nil
	})
}
