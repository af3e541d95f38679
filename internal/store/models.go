package store

import "context"

// ItemFlags mirrors the classification bits the session server attaches to
// every network item.
type ItemFlags int

const (
	FlagProgression ItemFlags = 1 << iota
	FlagUseful
	FlagTrap
)

// Important reports whether the item is progression-critical or marked as
// never excluded from randomization.
func (f ItemFlags) Important() bool {
	return f&(FlagProgression|FlagUseful) != 0
}

type ChannelKey struct {
	GuildID   string
	ChannelID string
}

// Conn is the live game-session connection owned by a ChannelBinding.
type Conn interface {
	ID() string
	Say(ctx context.Context, text string) error
	Disconnect(ctx context.Context) error
}

type Subscription interface {
	Cancel()
}

type ChannelBinding struct {
	GuildID   string         `json:"guild_id"`
	ChannelID string         `json:"channel_id"`
	Hostname  string         `json:"hostname"`
	Port      int            `json:"port"`
	Users     []*UserBinding `json:"users"`

	Session      Conn         `json:"-"`
	Subscription Subscription `json:"-"`
}

type UserBinding struct {
	SlotName   string       `json:"slot_name"`
	Attached   bool         `json:"is_attached"`
	IdentityID string       `json:"discord_id,omitempty"`
	Notify     bool         `json:"notify"`
	Items      []ItemRecord `json:"items"`
}

type ItemRecord struct {
	Sender   string    `json:"sender"`
	Receiver string    `json:"receiver"`
	ItemName string    `json:"item_name"`
	Location string    `json:"item_location"`
	Flags    ItemFlags `json:"item_flags"`
}

func (b *ChannelBinding) Key() ChannelKey {
	return ChannelKey{GuildID: b.GuildID, ChannelID: b.ChannelID}
}

func (b *ChannelBinding) Empty() bool {
	return len(b.Users) == 0
}

func (b *ChannelBinding) User(slot string) *UserBinding {
	for _, u := range b.Users {
		if u.SlotName == slot {
			return u
		}
	}
	return nil
}

// EnsureUser returns the binding for slot, creating a detached one if the slot
// has not been seen in this channel yet.
func (b *ChannelBinding) EnsureUser(slot string) *UserBinding {
	if u := b.User(slot); u != nil {
		return u
	}
	u := &UserBinding{SlotName: slot, Items: []ItemRecord{}}
	b.Users = append(b.Users, u)
	return u
}

func (b *ChannelBinding) AttachedTo(identityID string) []*UserBinding {
	var out []*UserBinding
	for _, u := range b.Users {
		if u.Attached && u.IdentityID == identityID {
			out = append(out, u)
		}
	}
	return out
}

func (b *ChannelBinding) AnyAttached() bool {
	for _, u := range b.Users {
		if u.Attached {
			return true
		}
	}
	return false
}

// Knows reports whether an item with this name was already recorded for the
// slot. Locations are not compared.
func (u *UserBinding) Knows(itemName string) bool {
	for _, it := range u.Items {
		if it.ItemName == itemName {
			return true
		}
	}
	return false
}

// Record appends rec unless its item name is already known and reports
// whether the ledger grew.
func (u *UserBinding) Record(rec ItemRecord) bool {
	if u.Knows(rec.ItemName) {
		return false
	}
	u.Items = append(u.Items, rec)
	return true
}

func (u *UserBinding) Attach(identityID string, notify bool) {
	u.Attached = true
	u.IdentityID = identityID
	u.Notify = notify
}

func (u *UserBinding) Detach() {
	u.Attached = false
	u.IdentityID = ""
}
