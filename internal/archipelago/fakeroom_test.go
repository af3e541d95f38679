package archipelago

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// fakeRoom is a scripted Archipelago server with two slots:
// Alice (1) plays Zelda, Bob (2) plays Metroid.
type fakeRoom struct {
	t   *testing.T
	srv *httptest.Server

	mu      sync.Mutex
	clients []*fakeClient
	said    []string
	logins  int
}

type fakeClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *fakeClient) write(packets ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(packets)
}

var (
	fakeSlots = map[string]int{"Alice": 1, "Bob": 2}
	fakeGames = map[string]GameData{
		"Zelda": {
			ItemNameToID:     map[string]int64{"Hookshot": 1001, "Rupee": 1002},
			LocationNameToID: map[string]int64{"Link's House": 5001, "Dungeon Chest": 5002},
		},
		"Metroid": {
			ItemNameToID:     map[string]int64{"Morph Ball": 2001, "Missile": 2002},
			LocationNameToID: map[string]int64{"Brinstar": 6001},
		},
	}
	fakeChecked = map[int][]int64{1: {5001, 5002}, 2: nil}
	fakePlaced  = map[int64]NetworkItem{
		5001: {Item: 2001, Location: 5001, Player: 2, Flags: 1},
		5002: {Item: 1002, Location: 5002, Player: 1, Flags: 0},
		6001: {Item: 1001, Location: 6001, Player: 1, Flags: 1},
	}
)

func newFakeRoom(t *testing.T) *fakeRoom {
	t.Helper()
	r := &fakeRoom{t: t}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	r.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		r.serve(&fakeClient{conn: conn})
	}))
	t.Cleanup(r.close)
	return r
}

func (r *fakeRoom) host() string { return "ws://127.0.0.1" }

func (r *fakeRoom) port() int {
	_, port, _ := net.SplitHostPort(r.srv.Listener.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

func (r *fakeRoom) close() {
	r.dropClients()
	r.srv.Close()
}

// dropClients closes every socket from the server side.
func (r *fakeRoom) dropClients() {
	r.mu.Lock()
	clients := r.clients
	r.clients = nil
	r.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.Close()
	}
}

func (r *fakeRoom) broadcast(packets ...any) {
	r.mu.Lock()
	clients := append([]*fakeClient(nil), r.clients...)
	r.mu.Unlock()
	for _, c := range clients {
		_ = c.write(packets...)
	}
}

func (r *fakeRoom) saidTexts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.said...)
}

func (r *fakeRoom) serve(c *fakeClient) {
	defer c.conn.Close()
	_ = c.write(RoomInfo{Cmd: cmdRoomInfo, Games: []string{"Zelda", "Metroid"}, SeedName: "seed"})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var packets []json.RawMessage
		if err := json.Unmarshal(data, &packets); err != nil {
			r.t.Errorf("client sent non-list frame: %s", data)
			return
		}
		for _, raw := range packets {
			r.handle(c, raw)
		}
	}
}

func (r *fakeRoom) handle(c *fakeClient, raw json.RawMessage) {
	var hdr packetHeader
	_ = json.Unmarshal(raw, &hdr)
	switch hdr.Cmd {
	case cmdGetDataPackage:
		var pkg DataPackage
		pkg.Cmd = cmdDataPackage
		pkg.Data.Games = fakeGames
		_ = c.write(pkg)
	case cmdConnect:
		var req Connect
		_ = json.Unmarshal(raw, &req)
		if req.ItemsHandling != itemsHandlingAll || req.UUID == "" || req.Version.Class != "Version" {
			r.t.Errorf("unexpected Connect packet: %+v", req)
		}
		slot, ok := fakeSlots[req.Name]
		if !ok {
			_ = c.write(ConnectionRefused{Cmd: cmdConnectionRefused, Errors: []string{"InvalidSlot"}})
			return
		}
		r.mu.Lock()
		r.clients = append(r.clients, c)
		r.logins++
		r.mu.Unlock()
		_ = c.write(Connected{
			Cmd:  cmdConnected,
			Slot: slot,
			Players: []NetworkPlayer{
				{Slot: 1, Name: "Alice", Alias: "Alice"},
				{Slot: 2, Name: "Bob", Alias: "Bobby"},
			},
			CheckedLocations: fakeChecked[slot],
			SlotInfo: map[string]NetworkSlot{
				"1": {Name: "Alice", Game: "Zelda"},
				"2": {Name: "Bob", Game: "Metroid"},
			},
		})
	case cmdLocationScouts:
		var req LocationScouts
		_ = json.Unmarshal(raw, &req)
		info := LocationInfo{Cmd: cmdLocationInfo}
		for _, loc := range req.Locations {
			if it, ok := fakePlaced[loc]; ok {
				info.Locations = append(info.Locations, it)
			}
		}
		_ = c.write(info)
	case cmdSay:
		var req Say
		_ = json.Unmarshal(raw, &req)
		r.mu.Lock()
		r.said = append(r.said, req.Text)
		r.mu.Unlock()
	}
}

func itemSendPacket(kind string, sender, receiver int, item, location int64, flags int) PrintJSON {
	var parts []JSONMessagePart
	if kind == PrintHint {
		parts = append(parts, JSONMessagePart{Text: "[Hint]: "})
	}
	parts = append(parts,
		JSONMessagePart{Type: "player_id", Text: strconv.Itoa(sender)},
		JSONMessagePart{Text: " sent "},
		JSONMessagePart{Type: "item_id", Text: strconv.FormatInt(item, 10), Player: receiver, Flags: flags},
		JSONMessagePart{Text: " to "},
		JSONMessagePart{Type: "player_id", Text: strconv.Itoa(receiver)},
		JSONMessagePart{Text: " ("},
		JSONMessagePart{Type: "location_id", Text: strconv.FormatInt(location, 10), Player: sender},
		JSONMessagePart{Text: ")"},
	)
	return PrintJSON{
		Cmd:       cmdPrintJSON,
		Type:      kind,
		Data:      parts,
		Receiving: receiver,
		Item:      &NetworkItem{Item: item, Location: location, Player: sender, Flags: flags},
	}
}
