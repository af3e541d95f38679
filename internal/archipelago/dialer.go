package archipelago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"archipelalog/internal/config"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Dialer opens sessions against Archipelago rooms. One Dialer is shared by
// every channel; it reports a single client uuid to the servers.
type Dialer struct {
	ws             *websocket.Dialer
	requestTimeout time.Duration
	tags           []string
	eventBuffer    int
	uuid           string
}

func NewDialer(cfg config.ArchipelagoConfig) *Dialer {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	tags := cfg.Tags
	if len(tags) == 0 {
		tags = []string{"TextOnly", "AP"}
	}
	return &Dialer{
		ws: &websocket.Dialer{
			HandshakeTimeout:  dialTimeout,
			EnableCompression: true,
		},
		requestTimeout: cfg.RequestTimeout,
		tags:           tags,
		eventBuffer:    cfg.EventBuffer,
		uuid:           uuid.NewString(),
	}
}

// Login connects to host:port and authenticates as slot. A refusal by the
// server is reported as *LoginError.
func (d *Dialer) Login(ctx context.Context, host string, port int, slot string) (*Session, error) {
	conn, address, err := d.dial(ctx, host, port)
	if err != nil {
		return nil, err
	}
	s := newSession(conn, slot, address, d.requestTimeout, d.eventBuffer)
	roomWaiter := s.expect(cmdRoomInfo)
	s.start()

	if err := d.handshake(ctx, s, roomWaiter); err != nil {
		_ = s.Disconnect(context.Background())
		return nil, err
	}
	log.Info().Str("session_id", s.id).Str("address", address).Str("slot", slot).Msg("archipelago session connected")
	return s, nil
}

func (d *Dialer) handshake(ctx context.Context, s *Session, roomWaiter *waiter) error {
	p, err := s.wait(ctx, roomWaiter)
	if err != nil {
		return fmt.Errorf("awaiting room info: %w", err)
	}
	var room RoomInfo
	if err := json.Unmarshal(p.raw, &room); err != nil {
		return fmt.Errorf("decode RoomInfo: %w", err)
	}

	p, err = s.request(ctx, GetDataPackage{Cmd: cmdGetDataPackage, Games: room.Games}, cmdDataPackage)
	if err != nil {
		return fmt.Errorf("fetching data package: %w", err)
	}
	var pkg DataPackage
	if err := json.Unmarshal(p.raw, &pkg); err != nil {
		return fmt.Errorf("decode DataPackage: %w", err)
	}
	names := newNameTable(pkg.Data.Games)

	p, err = s.request(ctx, Connect{
		Cmd:           cmdConnect,
		Name:          s.slot,
		UUID:          d.uuid,
		Version:       clientVersion,
		ItemsHandling: itemsHandlingAll,
		Tags:          d.tags,
	}, cmdConnected, cmdConnectionRefused)
	if err != nil {
		return fmt.Errorf("connecting as %q: %w", s.slot, err)
	}
	if p.cmd == cmdConnectionRefused {
		var refused ConnectionRefused
		_ = json.Unmarshal(p.raw, &refused)
		return &LoginError{Slot: s.slot, Reasons: refused.Errors}
	}
	var connected Connected
	if err := json.Unmarshal(p.raw, &connected); err != nil {
		return fmt.Errorf("decode Connected: %w", err)
	}
	names.setPlayers(connected.Players, connected.SlotInfo)

	s.mu.Lock()
	s.names = names
	s.slotID = connected.Slot
	s.checked = append([]int64(nil), connected.CheckedLocations...)
	s.mu.Unlock()
	return nil
}

// FetchCheckedLocations opens a temporary session as slot, scouts every
// location the slot already checked and disconnects again.
func (d *Dialer) FetchCheckedLocations(ctx context.Context, host string, port int, slot string) ([]ScoutedItem, error) {
	s, err := d.Login(ctx, host, port, slot)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Disconnect(context.Background()) }()

	checked := s.CheckedLocations()
	if len(checked) == 0 {
		return nil, nil
	}
	items, err := s.scout(ctx, checked)
	if err != nil {
		return nil, fmt.Errorf("scouting %d locations of %q: %w", len(checked), slot, err)
	}

	s.mu.Lock()
	names, self := s.names, s.slotID
	s.mu.Unlock()
	sender := names.player(self)
	out := make([]ScoutedItem, 0, len(items))
	for _, it := range items {
		out = append(out, ScoutedItem{
			ItemName:     names.item(it.Player, it.Item),
			LocationName: names.location(self, it.Location),
			Sender:       sender,
			Receiver:     names.player(it.Player),
			Flags:        it.Flags,
		})
	}
	return out, nil
}

func (d *Dialer) dial(ctx context.Context, host string, port int) (*websocket.Conn, string, error) {
	candidates, err := addressCandidates(host, port)
	if err != nil {
		return nil, "", err
	}
	var errs []error
	for _, address := range candidates {
		conn, resp, err := d.ws.DialContext(ctx, address, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err == nil {
			return conn, address, nil
		}
		log.Debug().Err(err).Str("address", address).Msg("archipelago dial attempt failed")
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, "", &DialError{Addresses: candidates, Err: errors.Join(errs...)}
}

// addressCandidates turns a host and port into websocket urls. A bare host is
// tried over wss first and plain ws second.
func addressCandidates(host string, port int) ([]string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("empty host")
	}
	if strings.Contains(host, "://") {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("parse host %q: %w", host, err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
		}
		if u.Port() == "" && port > 0 {
			u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(port))
		}
		return []string{u.String()}, nil
	}
	hostPort := host
	if port > 0 {
		hostPort = net.JoinHostPort(host, strconv.Itoa(port))
	}
	return []string{"wss://" + hostPort, "ws://" + hostPort}, nil
}
