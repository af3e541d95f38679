package archipelago

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// nameTable resolves numeric player, item and location ids. Items are looked
// up in the game of the slot that receives them, locations in the game of the
// slot that owns them.
type nameTable struct {
	mu        sync.RWMutex
	players   map[int]string
	games     map[int]string
	items     map[string]map[int64]string
	locations map[string]map[int64]string
}

func newNameTable(games map[string]GameData) *nameTable {
	n := &nameTable{
		players:   make(map[int]string),
		games:     make(map[int]string),
		items:     make(map[string]map[int64]string, len(games)),
		locations: make(map[string]map[int64]string, len(games)),
	}
	for game, data := range games {
		items := make(map[int64]string, len(data.ItemNameToID))
		for name, id := range data.ItemNameToID {
			items[id] = name
		}
		locations := make(map[int64]string, len(data.LocationNameToID))
		for name, id := range data.LocationNameToID {
			locations[id] = name
		}
		n.items[game] = items
		n.locations[game] = locations
	}
	return n
}

func (n *nameTable) setPlayers(players []NetworkPlayer, slots map[string]NetworkSlot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for key, info := range slots {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if info.Game != "" {
			n.games[id] = info.Game
		}
		if info.Name != "" {
			n.players[id] = info.Name
		}
	}
	for _, p := range players {
		if p.Name != "" {
			n.players[p.Slot] = p.Name
		}
	}
}

func (n *nameTable) player(slot int) string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if name, ok := n.players[slot]; ok {
		return name
	}
	if slot == 0 {
		return "Archipelago"
	}
	return fmt.Sprintf("Player %d", slot)
}

func (n *nameTable) item(slot int, id int64) string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if name, ok := lookup(n.items, n.games[slot], id); ok {
		return name
	}
	return fmt.Sprintf("Unknown item (ID: %d)", id)
}

func (n *nameTable) location(slot int, id int64) string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if name, ok := lookup(n.locations, n.games[slot], id); ok {
		return name
	}
	return fmt.Sprintf("Unknown location (ID: %d)", id)
}

// lookup prefers the given game and falls back to any game that knows the id,
// which covers shared ids such as the "Archipelago" game.
func lookup(tables map[string]map[int64]string, game string, id int64) (string, bool) {
	if names, ok := tables[game]; ok {
		if name, ok := names[id]; ok {
			return name, true
		}
	}
	for _, names := range tables {
		if name, ok := names[id]; ok {
			return name, true
		}
	}
	return "", false
}

// render flattens a PrintJSON message into plain text.
func (n *nameTable) render(parts []JSONMessagePart) string {
	var b strings.Builder
	for _, part := range parts {
		switch part.Type {
		case "player_id":
			if id, err := strconv.Atoi(part.Text); err == nil {
				b.WriteString(n.player(id))
				continue
			}
		case "item_id":
			if id, err := strconv.ParseInt(part.Text, 10, 64); err == nil {
				b.WriteString(n.item(part.Player, id))
				continue
			}
		case "location_id":
			if id, err := strconv.ParseInt(part.Text, 10, 64); err == nil {
				b.WriteString(n.location(part.Player, id))
				continue
			}
		}
		b.WriteString(part.Text)
	}
	return b.String()
}
