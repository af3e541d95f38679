package archipelago

import "strings"

// ItemEvent is an item-found log message with ids already resolved to names.
type ItemEvent struct {
	Kind     string
	Sender   string
	Receiver string
	ItemName string
	Location string
	Flags    int
	Text     string
}

// IsHint reports whether the message is a hint announcement rather than an
// actual pickup.
func (e ItemEvent) IsHint() bool {
	return e.Kind == PrintHint || strings.Contains(e.Text, "[Hint]")
}

// ScoutedItem is an item placed at a location the scouted slot has already
// checked.
type ScoutedItem struct {
	ItemName     string
	LocationName string
	Sender       string
	Receiver     string
	Flags        int
}

func itemEventFrom(p PrintJSON, names *nameTable) (ItemEvent, bool) {
	switch p.Type {
	case PrintItemSend, PrintItemCheat, PrintHint:
	default:
		return ItemEvent{}, false
	}
	if p.Item == nil {
		return ItemEvent{}, false
	}
	return ItemEvent{
		Kind:     p.Type,
		Sender:   names.player(p.Item.Player),
		Receiver: names.player(p.Receiving),
		ItemName: names.item(p.Receiving, p.Item.Item),
		Location: names.location(p.Item.Player, p.Item.Location),
		Flags:    p.Item.Flags,
		Text:     names.render(p.Data),
	}, true
}
