package bridge

import (
	"fmt"

	"archipelalog/internal/store"
)

// Party is one side of an item event as seen from the chat channel.
type Party struct {
	Slot     string
	Attached bool
	Notify   bool
	Name     string
	Mention  string
}

// label is the name used when no mention is wanted.
func (p Party) label() string {
	if p.Attached && p.Name != "" {
		return p.Name
	}
	return p.Slot
}

func (p Party) mentionOrLabel(important bool) string {
	if p.Attached && p.Notify && important && p.Mention != "" {
		return p.Mention
	}
	return p.label()
}

type ItemNotice struct {
	Sender   string
	Receiver string
	ItemName string
	Location string
	Flags    store.ItemFlags
}

// FormatItemNotice renders "$Sender found $Receiver item at location". Only
// the receiver of an important item is ever mentioned; on a self-find the
// finder takes that role and the receiver phrase becomes "their".
func FormatItemNotice(n ItemNotice, sender, receiver Party) string {
	important := n.Flags.Important()
	item := n.ItemName
	if important {
		item = "**" + item + "**"
	}

	var senderPhrase, receiverPhrase string
	if n.Sender == n.Receiver {
		senderPhrase = sender.mentionOrLabel(important)
		receiverPhrase = "their"
	} else {
		senderPhrase = sender.label()
		receiverPhrase = receiver.mentionOrLabel(important) + "'s"
	}
	return fmt.Sprintf("%s found %s %s at %s", senderPhrase, receiverPhrase, item, n.Location)
}
