package archipelago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeTimeout = 10 * time.Second

// Session is one logged-in connection to an Archipelago room. Packets are read
// on one goroutine; subscription callbacks run on a second goroutine in the
// order the packets arrived.
type Session struct {
	id             string
	slot           string
	address        string
	conn           *websocket.Conn
	requestTimeout time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	waiters []*waiter
	sub     *Subscription
	slotID  int
	checked []int64
	names   *nameTable
	readErr error

	events  chan sessionEvent
	done    chan struct{}
	closing atomic.Bool
	once    sync.Once
}

type rawPacket struct {
	cmd string
	raw json.RawMessage
}

type waiter struct {
	cmds []string
	ch   chan rawPacket
}

type sessionEvent struct {
	item   ItemEvent
	closed bool
	reason string
}

// Subscription routes a session's events to a pair of callbacks until it is
// cancelled.
type Subscription struct {
	mu        sync.Mutex
	onItem    func(ItemEvent)
	onClosed  func(reason string)
	cancelled bool
}

// Cancel stops delivery. Events already queued are dropped. A callback that is
// running when Cancel is called is not interrupted.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.onItem = nil
	s.onClosed = nil
	s.mu.Unlock()
}

func (s *Subscription) handlers() (func(ItemEvent), func(string), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onItem, s.onClosed, !s.cancelled
}

func newSession(conn *websocket.Conn, slot, address string, requestTimeout time.Duration, buffer int) *Session {
	if buffer <= 0 {
		buffer = 256
	}
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	return &Session{
		id:             newSessionID(),
		slot:           slot,
		address:        address,
		conn:           conn,
		requestTimeout: requestTimeout,
		names:          newNameTable(nil),
		events:         make(chan sessionEvent, buffer),
		done:           make(chan struct{}),
	}
}

func (s *Session) ID() string      { return s.id }
func (s *Session) Slot() string    { return s.slot }
func (s *Session) Address() string { return s.address }

// CheckedLocations returns the location ids the logged-in slot has checked.
func (s *Session) CheckedLocations() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.checked))
	copy(out, s.checked)
	return out
}

// Subscribe installs callbacks for item events and for an unexpected close of
// the connection, replacing any previous subscription.
func (s *Session) Subscribe(onItem func(ItemEvent), onClosed func(reason string)) *Subscription {
	sub := &Subscription{onItem: onItem, onClosed: onClosed}
	s.mu.Lock()
	prev := s.sub
	s.sub = sub
	s.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}
	return sub
}

func (s *Session) Say(ctx context.Context, text string) error {
	return s.send(ctx, Say{Cmd: cmdSay, Text: text})
}

// Disconnect closes the socket without waiting for callbacks in flight, so it
// is safe to call from code that such a callback is waiting on.
func (s *Session) Disconnect(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		s.closing.Store(true)
		deadline := time.Now().Add(time.Second)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		if closeErr := s.conn.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
			err = closeErr
		}
	})
	return err
}

func (s *Session) start() {
	go s.readLoop()
	go s.dispatch()
}

func (s *Session) readLoop() {
	var reason string
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			reason = closeReason(err)
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			break
		}
		var packets []json.RawMessage
		if err := json.Unmarshal(data, &packets); err != nil {
			log.Warn().Err(err).Str("session_id", s.id).Msg("archipelago frame is not a packet list")
			continue
		}
		for _, raw := range packets {
			s.handlePacket(raw)
		}
	}
	close(s.done)
	if !s.closing.Load() {
		s.events <- sessionEvent{closed: true, reason: reason}
	}
	close(s.events)
}

func (s *Session) handlePacket(raw json.RawMessage) {
	var hdr packetHeader
	if err := json.Unmarshal(raw, &hdr); err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Msg("archipelago packet without cmd")
		return
	}
	if s.deliver(rawPacket{cmd: hdr.Cmd, raw: raw}) {
		return
	}
	switch hdr.Cmd {
	case cmdPrintJSON:
		var p PrintJSON
		if err := json.Unmarshal(raw, &p); err != nil {
			log.Warn().Err(err).Str("session_id", s.id).Msg("decode PrintJSON failed")
			return
		}
		if ev, ok := itemEventFrom(p, s.nameTable()); ok {
			s.events <- sessionEvent{item: ev}
		}
	case cmdRoomUpdate:
		var p RoomUpdate
		if err := json.Unmarshal(raw, &p); err != nil {
			return
		}
		s.applyRoomUpdate(p)
	}
}

func (s *Session) applyRoomUpdate(p RoomUpdate) {
	if len(p.Players) > 0 {
		s.nameTable().setPlayers(p.Players, nil)
	}
	if len(p.CheckedLocations) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	known := make(map[int64]bool, len(s.checked))
	for _, id := range s.checked {
		known[id] = true
	}
	for _, id := range p.CheckedLocations {
		if !known[id] {
			s.checked = append(s.checked, id)
		}
	}
}

func (s *Session) dispatch() {
	for ev := range s.events {
		s.mu.Lock()
		sub := s.sub
		s.mu.Unlock()
		if sub == nil {
			continue
		}
		onItem, onClosed, active := sub.handlers()
		if !active {
			continue
		}
		if ev.closed {
			if onClosed != nil {
				onClosed(ev.reason)
			}
			continue
		}
		if onItem != nil {
			onItem(ev.item)
		}
	}
}

func (s *Session) nameTable() *nameTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.names
}

// expect registers interest in the next packet with one of cmds. It must be
// called before the request that triggers the reply is sent.
func (s *Session) expect(cmds ...string) *waiter {
	w := &waiter{cmds: cmds, ch: make(chan rawPacket, 1)}
	s.mu.Lock()
	s.waiters = append(s.waiters, w)
	s.mu.Unlock()
	return w
}

func (s *Session) deliver(p rawPacket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.waiters {
		for _, cmd := range w.cmds {
			if cmd == p.cmd {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				w.ch <- p
				return true
			}
		}
	}
	return false
}

func (s *Session) drop(w *waiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.waiters {
		if cur == w {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

func (s *Session) wait(ctx context.Context, w *waiter) (rawPacket, error) {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()
	select {
	case p := <-w.ch:
		return p, nil
	case <-s.done:
		select {
		case p := <-w.ch:
			return p, nil
		default:
		}
		s.drop(w)
		s.mu.Lock()
		readErr := s.readErr
		s.mu.Unlock()
		return rawPacket{}, fmt.Errorf("%w: %v", ErrClosed, readErr)
	case <-ctx.Done():
		s.drop(w)
		return rawPacket{}, fmt.Errorf("waiting for %v: %w", w.cmds, ctx.Err())
	}
}

// request sends packet and waits for the first reply carrying one of cmds.
func (s *Session) request(ctx context.Context, packet any, cmds ...string) (rawPacket, error) {
	w := s.expect(cmds...)
	if err := s.send(ctx, packet); err != nil {
		s.drop(w)
		return rawPacket{}, err
	}
	return s.wait(ctx, w)
}

func (s *Session) send(ctx context.Context, packets ...any) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	if s.closing.Load() {
		return ErrClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetWriteDeadline(deadline)
	return s.conn.WriteJSON(packets)
}

func (s *Session) scout(ctx context.Context, locations []int64) ([]NetworkItem, error) {
	p, err := s.request(ctx, LocationScouts{Cmd: cmdLocationScouts, Locations: locations}, cmdLocationInfo)
	if err != nil {
		return nil, err
	}
	var info LocationInfo
	if err := json.Unmarshal(p.raw, &info); err != nil {
		return nil, fmt.Errorf("decode LocationInfo: %w", err)
	}
	return info.Locations, nil
}

func closeReason(err error) string {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		if ce.Text != "" {
			return fmt.Sprintf("closed by server (%d): %s", ce.Code, ce.Text)
		}
		return fmt.Sprintf("closed by server (%d)", ce.Code)
	}
	return err.Error()
}
