package bridge

import (
	"context"

	"archipelalog/internal/store"
)

type SlotStatus struct {
	Slot       string `json:"slot"`
	Attached   bool   `json:"attached"`
	IdentityID string `json:"identity_id,omitempty"`
	Notify     bool   `json:"notify"`
	Items      int    `json:"items"`
}

type ChannelStatus struct {
	GuildID   string       `json:"guild_id"`
	ChannelID string       `json:"channel_id"`
	Hostname  string       `json:"hostname"`
	Port      int          `json:"port"`
	Connected bool         `json:"connected"`
	SessionID string       `json:"session_id,omitempty"`
	Slots     []SlotStatus `json:"slots"`
}

func statusOf(b *store.ChannelBinding) ChannelStatus {
	st := ChannelStatus{
		GuildID:   b.GuildID,
		ChannelID: b.ChannelID,
		Hostname:  b.Hostname,
		Port:      b.Port,
		Slots:     make([]SlotStatus, 0, len(b.Users)),
	}
	if b.Session != nil {
		st.Connected = true
		st.SessionID = b.Session.ID()
	}
	for _, u := range b.Users {
		st.Slots = append(st.Slots, SlotStatus{
			Slot:       u.SlotName,
			Attached:   u.Attached,
			IdentityID: u.IdentityID,
			Notify:     u.Notify,
			Items:      len(u.Items),
		})
	}
	return st
}

func (c *Coordinator) Status(ctx context.Context, guildID, channelID string) (ChannelStatus, error) {
	var out ChannelStatus
	err := c.store.WithExclusiveAccess(ctx, func(_ context.Context, tx *store.Tx) error {
		b := tx.Find(store.ChannelKey{GuildID: guildID, ChannelID: channelID})
		if b == nil {
			return &NotFoundError{What: "channel"}
		}
		out = statusOf(b)
		return nil
	})
	return out, err
}

// Channels lists every binding without ledgers.
func (c *Coordinator) Channels(ctx context.Context) ([]ChannelStatus, error) {
	var out []ChannelStatus
	err := c.store.WithExclusiveAccess(ctx, func(_ context.Context, tx *store.Tx) error {
		for _, b := range tx.Bindings() {
			out = append(out, statusOf(b))
		}
		return nil
	})
	return out, err
}
