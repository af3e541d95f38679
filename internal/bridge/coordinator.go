package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"archipelalog/internal/archipelago"
	"archipelalog/internal/store"

	"github.com/rs/zerolog/log"
)

// Coordinator owns the mapping between chat channels and live game sessions.
// Every operation runs inside the store's exclusive section, including the
// network calls it makes.
type Coordinator struct {
	store  *store.Store
	dialer Dialer
	chat   Chat
}

func NewCoordinator(st *store.Store, dialer Dialer, chat Chat) *Coordinator {
	return &Coordinator{store: st, dialer: dialer, chat: chat}
}

// Bootstrap loads the persisted bindings and reconnects every channel that has
// at least one slot. A channel that fails to connect is told so and skipped.
func (c *Coordinator) Bootstrap(ctx context.Context) error {
	return c.store.WithExclusiveAccess(ctx, func(ctx context.Context, tx *store.Tx) error {
		displaced, err := tx.Load(ctx)
		if err != nil {
			return err
		}
		for _, b := range displaced {
			c.closeSession(ctx, b)
		}
		for _, b := range tx.PruneEmpty() {
			log.Info().Str("guild_id", b.GuildID).Str("channel_id", b.ChannelID).Msg("pruned empty channel binding")
		}
		for _, b := range tx.Bindings() {
			if err := c.connectAndReconcile(ctx, b); err != nil {
				log.Warn().Err(err).Str("guild_id", b.GuildID).Str("channel_id", b.ChannelID).Msg("channel bootstrap failed")
				c.report(ctx, b, MsgLoginFailed)
			}
		}
		c.save(ctx, tx)
		log.Info().Int("channels", len(tx.Bindings())).Msg("bootstrap complete")
		return nil
	})
}

func (c *Coordinator) SetConnectionInfo(ctx context.Context, guildID, channelID, host string, port int) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return fmt.Errorf("%w: hostname is empty", ErrInvalidInput)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidInput, port)
	}
	key := store.ChannelKey{GuildID: guildID, ChannelID: channelID}
	return c.store.WithExclusiveAccess(ctx, func(ctx context.Context, tx *store.Tx) error {
		b, created := tx.Ensure(key)
		if !created {
			c.closeSession(ctx, b)
		}
		b.Hostname = host
		b.Port = port
		c.save(ctx, tx)
		return nil
	})
}

func (c *Coordinator) Reconnect(ctx context.Context, guildID, channelID string) error {
	key := store.ChannelKey{GuildID: guildID, ChannelID: channelID}
	return c.store.WithExclusiveAccess(ctx, func(ctx context.Context, tx *store.Tx) error {
		b := tx.Find(key)
		if b == nil {
			return &NotFoundError{What: "channel"}
		}
		c.closeSession(ctx, b)
		err := c.connectAndReconcile(ctx, b)
		c.save(ctx, tx)
		return err
	})
}

func (c *Coordinator) DetachChannel(ctx context.Context, guildID, channelID string) error {
	key := store.ChannelKey{GuildID: guildID, ChannelID: channelID}
	return c.store.WithExclusiveAccess(ctx, func(ctx context.Context, tx *store.Tx) error {
		b := tx.Remove(key)
		if b == nil {
			return &NotFoundError{What: "channel"}
		}
		c.closeSession(ctx, b)
		c.save(ctx, tx)
		return nil
	})
}

// BindUser attaches identityID to slot. A slot that is new to the channel gets
// its already-checked items recorded silently, so only later finds are relayed.
func (c *Coordinator) BindUser(ctx context.Context, guildID, channelID, slot string, notify bool, identityID string) error {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return fmt.Errorf("%w: slot name is empty", ErrInvalidInput)
	}
	key := store.ChannelKey{GuildID: guildID, ChannelID: channelID}
	return c.store.WithExclusiveAccess(ctx, func(ctx context.Context, tx *store.Tx) error {
		b := tx.Find(key)
		if b == nil {
			return &NotFoundError{What: "channel"}
		}
		u := b.User(slot)
		if u != nil && u.Attached && u.IdentityID != identityID {
			return &ConflictError{Slot: slot, HolderID: u.IdentityID, HolderName: c.displayName(ctx, u.IdentityID)}
		}

		openedHere := false
		if b.Session == nil {
			sess, err := c.dialer.Login(ctx, b.Hostname, b.Port, slot)
			if err != nil {
				metricConnectFailedTotal.Add(1)
				return &ConnectionError{Host: b.Hostname, Port: b.Port, Slot: slot, Err: err}
			}
			c.attach(b, sess)
			openedHere = true
		}

		var baseline []archipelago.ScoutedItem
		if u == nil {
			items, err := c.dialer.FetchCheckedLocations(ctx, b.Hostname, b.Port, slot)
			if err != nil {
				if openedHere {
					c.closeSession(ctx, b)
				}
				metricConnectFailedTotal.Add(1)
				return &ConnectionError{Host: b.Hostname, Port: b.Port, Slot: slot, Err: err}
			}
			baseline = items
		}

		for _, other := range b.AttachedTo(identityID) {
			if other.SlotName != slot {
				other.Detach()
			}
		}
		u = b.EnsureUser(slot)
		u.Attach(identityID, notify)
		seeded := recordScouted(b, baseline)
		log.Info().Str("guild_id", guildID).Str("channel_id", channelID).Str("slot", slot).Int("seeded", len(seeded)).Msg("slot attached")
		c.save(ctx, tx)
		return nil
	})
}

// UnbindUser detaches identityID from every slot in the channel. When nobody
// is left attached the channel is torn down and closed is true.
func (c *Coordinator) UnbindUser(ctx context.Context, guildID, channelID, identityID string) (closed bool, err error) {
	key := store.ChannelKey{GuildID: guildID, ChannelID: channelID}
	err = c.store.WithExclusiveAccess(ctx, func(ctx context.Context, tx *store.Tx) error {
		b := tx.Find(key)
		if b == nil {
			return &NotFoundError{What: "channel"}
		}
		matches := b.AttachedTo(identityID)
		if len(matches) == 0 {
			return &NotFoundError{What: "identity", Identity: identityID}
		}
		for _, u := range matches {
			u.Detach()
		}
		if !b.AnyAttached() {
			tx.Remove(key)
			c.closeSession(ctx, b)
			closed = true
		}
		c.save(ctx, tx)
		return nil
	})
	return closed, err
}

// Say forwards text to the session server through the channel's live session.
func (c *Coordinator) Say(ctx context.Context, guildID, channelID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: message is empty", ErrInvalidInput)
	}
	key := store.ChannelKey{GuildID: guildID, ChannelID: channelID}
	return c.store.WithExclusiveAccess(ctx, func(ctx context.Context, tx *store.Tx) error {
		b := tx.Find(key)
		if b == nil {
			return &NotFoundError{What: "channel"}
		}
		if b.Session == nil {
			return ErrNotConnected
		}
		return b.Session.Say(ctx, text)
	})
}

// Shutdown closes every live session. Bindings stay persisted.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	return c.store.WithExclusiveAccess(ctx, func(ctx context.Context, tx *store.Tx) error {
		for _, b := range tx.Bindings() {
			c.closeSession(ctx, b)
		}
		return nil
	})
}

func (c *Coordinator) connectAndReconcile(ctx context.Context, b *store.ChannelBinding) error {
	if len(b.Users) == 0 {
		return nil
	}
	c.closeSession(ctx, b)
	slot := b.Users[0].SlotName
	sess, err := c.dialer.Login(ctx, b.Hostname, b.Port, slot)
	if err != nil {
		metricConnectFailedTotal.Add(1)
		return &ConnectionError{Host: b.Hostname, Port: b.Port, Slot: slot, Err: err}
	}
	c.attach(b, sess)

	found := c.reconcile(ctx, b)
	if len(found) > 0 {
		c.announceReconciliation(ctx, b, found)
	}
	return nil
}

// liveLink lets an event callback cancel the subscription it arrived on.
type liveLink struct {
	mu  sync.Mutex
	sub store.Subscription
}

func (l *liveLink) set(sub store.Subscription) {
	l.mu.Lock()
	l.sub = sub
	l.mu.Unlock()
}

func (l *liveLink) cancel() {
	l.mu.Lock()
	sub := l.sub
	l.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

func (c *Coordinator) attach(b *store.ChannelBinding, sess GameSession) {
	id := sess.ID()
	link := &liveLink{}
	sub := sess.Subscribe(
		func(ev archipelago.ItemEvent) { c.handleItemEvent(id, link, ev) },
		func(reason string) { c.handleSessionClosed(id, reason) },
	)
	link.set(sub)
	b.Session = sess
	b.Subscription = sub
	metricSessionsLive.Add(1)
	log.Info().Str("guild_id", b.GuildID).Str("channel_id", b.ChannelID).Str("session_id", id).Msg("channel session attached")
}

// closeSession cancels the subscription before disconnecting so no event of
// the old session is relayed once this returns.
func (c *Coordinator) closeSession(ctx context.Context, b *store.ChannelBinding) {
	if b.Subscription != nil {
		b.Subscription.Cancel()
		b.Subscription = nil
	}
	if b.Session == nil {
		return
	}
	sess := b.Session
	b.Session = nil
	metricSessionsLive.Add(-1)
	if err := sess.Disconnect(ctx); err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID()).Msg("disconnect failed")
	}
}

func (c *Coordinator) save(ctx context.Context, tx *store.Tx) {
	if err := tx.Save(ctx); err != nil {
		metricPersistFailedTotal.Add(1)
		log.Error().Err(err).Msg("persist sessions failed")
	}
}

func (c *Coordinator) report(ctx context.Context, b *store.ChannelBinding, text string) {
	if err := c.chat.SendChannelMessage(ctx, b.GuildID, b.ChannelID, text, true); err != nil {
		log.Error().Err(err).Str("guild_id", b.GuildID).Str("channel_id", b.ChannelID).Msg("report to channel failed")
	}
}

func (c *Coordinator) displayName(ctx context.Context, identityID string) string {
	name, err := c.chat.ResolveDisplayName(ctx, identityID)
	if err != nil || name == "" {
		if err != nil {
			log.Debug().Err(err).Str("identity_id", identityID).Msg("resolve display name failed")
		}
		return ""
	}
	return name
}

// party resolves how slot is shown in this channel.
func (c *Coordinator) party(ctx context.Context, b *store.ChannelBinding, slot string) Party {
	p := Party{Slot: slot}
	u := b.User(slot)
	if u == nil || !u.Attached || u.IdentityID == "" {
		return p
	}
	p.Attached = true
	p.Notify = u.Notify
	p.Mention = c.chat.Mention(u.IdentityID)
	p.Name = c.displayName(ctx, u.IdentityID)
	return p
}
