package archipelago

// Packet names of the Archipelago network protocol. Every websocket frame
// carries a JSON array of packets, each tagged by "cmd".
const (
	cmdRoomInfo          = "RoomInfo"
	cmdGetDataPackage    = "GetDataPackage"
	cmdDataPackage       = "DataPackage"
	cmdConnect           = "Connect"
	cmdConnected         = "Connected"
	cmdConnectionRefused = "ConnectionRefused"
	cmdLocationScouts    = "LocationScouts"
	cmdLocationInfo      = "LocationInfo"
	cmdPrintJSON         = "PrintJSON"
	cmdRoomUpdate        = "RoomUpdate"
	cmdSay               = "Say"
)

// itemsHandlingAll asks the server to send every item, including starting
// inventory and items found in the slot's own world.
const itemsHandlingAll = 0b111

const (
	PrintItemSend  = "ItemSend"
	PrintItemCheat = "ItemCheat"
	PrintHint      = "Hint"
)

type packetHeader struct {
	Cmd string `json:"cmd"`
}

type NetworkVersion struct {
	Major int    `json:"major"`
	Minor int    `json:"minor"`
	Build int    `json:"build"`
	Class string `json:"class"`
}

var clientVersion = NetworkVersion{Major: 0, Minor: 5, Build: 1, Class: "Version"}

type RoomInfo struct {
	Cmd                  string            `json:"cmd"`
	Version              NetworkVersion    `json:"version"`
	Tags                 []string          `json:"tags"`
	Password             bool              `json:"password"`
	Games                []string          `json:"games"`
	SeedName             string            `json:"seed_name"`
	DataPackageChecksums map[string]string `json:"datapackage_checksums,omitempty"`
}

type GetDataPackage struct {
	Cmd   string   `json:"cmd"`
	Games []string `json:"games,omitempty"`
}

type GameData struct {
	ItemNameToID     map[string]int64 `json:"item_name_to_id"`
	LocationNameToID map[string]int64 `json:"location_name_to_id"`
	Checksum         string           `json:"checksum,omitempty"`
}

type DataPackage struct {
	Cmd  string `json:"cmd"`
	Data struct {
		Games map[string]GameData `json:"games"`
	} `json:"data"`
}

type Connect struct {
	Cmd           string         `json:"cmd"`
	Password      string         `json:"password"`
	Game          string         `json:"game"`
	Name          string         `json:"name"`
	UUID          string         `json:"uuid"`
	Version       NetworkVersion `json:"version"`
	ItemsHandling int            `json:"items_handling"`
	Tags          []string       `json:"tags"`
	SlotData      bool           `json:"slot_data"`
}

type NetworkPlayer struct {
	Team  int    `json:"team"`
	Slot  int    `json:"slot"`
	Alias string `json:"alias"`
	Name  string `json:"name"`
}

type NetworkSlot struct {
	Name string `json:"name"`
	Game string `json:"game"`
	Type int    `json:"type"`
}

type Connected struct {
	Cmd              string                 `json:"cmd"`
	Team             int                    `json:"team"`
	Slot             int                    `json:"slot"`
	Players          []NetworkPlayer        `json:"players"`
	MissingLocations []int64                `json:"missing_locations"`
	CheckedLocations []int64                `json:"checked_locations"`
	SlotInfo         map[string]NetworkSlot `json:"slot_info"`
}

type ConnectionRefused struct {
	Cmd    string   `json:"cmd"`
	Errors []string `json:"errors"`
}

type LocationScouts struct {
	Cmd          string  `json:"cmd"`
	Locations    []int64 `json:"locations"`
	CreateAsHint int     `json:"create_as_hint"`
}

type NetworkItem struct {
	Item     int64 `json:"item"`
	Location int64 `json:"location"`
	Player   int   `json:"player"`
	Flags    int   `json:"flags"`
}

type LocationInfo struct {
	Cmd       string        `json:"cmd"`
	Locations []NetworkItem `json:"locations"`
}

type JSONMessagePart struct {
	Type   string `json:"type,omitempty"`
	Text   string `json:"text,omitempty"`
	Color  string `json:"color,omitempty"`
	Player int    `json:"player,omitempty"`
	Flags  int    `json:"flags,omitempty"`
}

type PrintJSON struct {
	Cmd       string            `json:"cmd"`
	Type      string            `json:"type,omitempty"`
	Data      []JSONMessagePart `json:"data"`
	Receiving int               `json:"receiving,omitempty"`
	Item      *NetworkItem      `json:"item,omitempty"`
	Found     *bool             `json:"found,omitempty"`
}

type RoomUpdate struct {
	Cmd              string          `json:"cmd"`
	Players          []NetworkPlayer `json:"players,omitempty"`
	CheckedLocations []int64         `json:"checked_locations,omitempty"`
}

type Say struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text"`
}
