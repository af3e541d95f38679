package bridge

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"archipelalog/internal/archipelago"
	"archipelalog/internal/store"
)

type fakeSub struct {
	mu        sync.Mutex
	cancelled bool
}

func (s *fakeSub) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

func (s *fakeSub) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.cancelled
}

type fakeSession struct {
	id   string
	slot string

	mu           sync.Mutex
	onItem       func(archipelago.ItemEvent)
	onClosed     func(string)
	sub          *fakeSub
	said         []string
	disconnected bool
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Say(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disconnected {
		return archipelago.ErrClosed
	}
	s.said = append(s.said, text)
	return nil
}

func (s *fakeSession) Disconnect(context.Context) error {
	s.mu.Lock()
	s.disconnected = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) Subscribe(onItem func(archipelago.ItemEvent), onClosed func(string)) store.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onItem, s.onClosed = onItem, onClosed
	s.sub = &fakeSub{}
	return s.sub
}

// emit delivers ev like the real dispatcher: only while subscribed.
func (s *fakeSession) emit(ev archipelago.ItemEvent) {
	s.mu.Lock()
	fn, sub := s.onItem, s.sub
	s.mu.Unlock()
	if fn != nil && sub != nil && sub.active() {
		fn(ev)
	}
}

// emitRaw delivers ev even after cancellation, as an event already in flight
// would be.
func (s *fakeSession) emitRaw(ev archipelago.ItemEvent) {
	s.mu.Lock()
	fn := s.onItem
	s.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (s *fakeSession) drop(reason string) {
	s.mu.Lock()
	fn, sub := s.onClosed, s.sub
	s.mu.Unlock()
	if fn != nil && sub != nil && sub.active() {
		fn(reason)
	}
}

func (s *fakeSession) isDisconnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnected
}

func (s *fakeSession) subscription() *fakeSub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub
}

type fakeDialer struct {
	mu        sync.Mutex
	slots     map[string]bool
	scouts    map[string][]archipelago.ScoutedItem
	downHosts map[string]bool
	sessions  []*fakeSession
	logins    []string
	fetches   []string
}

func newFakeDialer(slots ...string) *fakeDialer {
	d := &fakeDialer{
		slots:     make(map[string]bool),
		scouts:    make(map[string][]archipelago.ScoutedItem),
		downHosts: make(map[string]bool),
	}
	for _, s := range slots {
		d.slots[s] = true
	}
	return d
}

func (d *fakeDialer) check(host, slot string) error {
	if d.downHosts[host] {
		return &archipelago.DialError{Addresses: []string{"wss://" + host}, Err: errors.New("connection refused")}
	}
	if !d.slots[slot] {
		return &archipelago.LoginError{Slot: slot, Reasons: []string{"InvalidSlot"}}
	}
	return nil
}

func (d *fakeDialer) Login(_ context.Context, host string, _ int, slot string) (GameSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logins = append(d.logins, slot)
	if err := d.check(host, slot); err != nil {
		return nil, err
	}
	s := &fakeSession{id: fmt.Sprintf("session-%d", len(d.sessions)+1), slot: slot}
	d.sessions = append(d.sessions, s)
	return s, nil
}

func (d *fakeDialer) FetchCheckedLocations(_ context.Context, host string, _ int, slot string) ([]archipelago.ScoutedItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fetches = append(d.fetches, slot)
	if err := d.check(host, slot); err != nil {
		return nil, err
	}
	return append([]archipelago.ScoutedItem(nil), d.scouts[slot]...), nil
}

func (d *fakeDialer) setScouts(slot string, items ...archipelago.ScoutedItem) {
	d.mu.Lock()
	d.scouts[slot] = items
	d.mu.Unlock()
}

func (d *fakeDialer) setDown(host string, down bool) {
	d.mu.Lock()
	d.downHosts[host] = down
	d.mu.Unlock()
}

func (d *fakeDialer) lastSession() *fakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sessions) == 0 {
		return nil
	}
	return d.sessions[len(d.sessions)-1]
}

func (d *fakeDialer) sessionCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

type chatMessage struct {
	guildID    string
	channelID  string
	text       string
	emphasized bool
}

type fakeChat struct {
	mu       sync.Mutex
	messages []chatMessage
	names    map[string]string
	failSend bool
}

func newFakeChat(names map[string]string) *fakeChat {
	return &fakeChat{names: names}
}

func (c *fakeChat) SendChannelMessage(_ context.Context, guildID, channelID, text string, emphasized bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errors.New("chat unavailable")
	}
	c.messages = append(c.messages, chatMessage{guildID: guildID, channelID: channelID, text: text, emphasized: emphasized})
	return nil
}

func (c *fakeChat) ResolveDisplayName(_ context.Context, identityID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.names[identityID]; ok {
		return name, nil
	}
	return "", errors.New("unknown user")
}

func (c *fakeChat) Mention(identityID string) string {
	return "<@" + identityID + ">"
}

func (c *fakeChat) setFailing(fail bool) {
	c.mu.Lock()
	c.failSend = fail
	c.mu.Unlock()
}

func (c *fakeChat) sent() []chatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chatMessage(nil), c.messages...)
}

func (c *fakeChat) sentContaining(substr string) []chatMessage {
	var out []chatMessage
	for _, m := range c.sent() {
		if strings.Contains(m.text, substr) {
			out = append(out, m)
		}
	}
	return out
}

type harness struct {
	t      *testing.T
	path   string
	store  *store.Store
	dialer *fakeDialer
	chat   *fakeChat
	coord  *Coordinator
}

const (
	testGuild   = "guild-1"
	testChannel = "channel-1"
	testHost    = "host"
	testPort    = 38281
)

func newHarness(t *testing.T, slots ...string) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Sessions.json")
	h := &harness{
		t:      t,
		path:   path,
		dialer: newFakeDialer(slots...),
		chat:   newFakeChat(map[string]string{"111": "AliceUser", "222": "BobUser", "333": "CarolUser"}),
	}
	h.store = store.New(store.NewFilePersister(path))
	h.coord = NewCoordinator(h.store, h.dialer, h.chat)
	return h
}

// restart builds a fresh store and coordinator over the same file, as a
// process restart would.
func (h *harness) restart() {
	h.store = store.New(store.NewFilePersister(h.path))
	h.coord = NewCoordinator(h.store, h.dialer, h.chat)
}

func (h *harness) setup() {
	h.t.Helper()
	if err := h.coord.SetConnectionInfo(context.Background(), testGuild, testChannel, testHost, testPort); err != nil {
		h.t.Fatalf("SetConnectionInfo: %v", err)
	}
}

func (h *harness) bind(slot, identity string, notify bool) {
	h.t.Helper()
	if err := h.coord.BindUser(context.Background(), testGuild, testChannel, slot, notify, identity); err != nil {
		h.t.Fatalf("BindUser(%s, %s): %v", slot, identity, err)
	}
}

// inspect runs fn against the channel binding, which may be nil.
func (h *harness) inspect(fn func(b *store.ChannelBinding)) {
	h.t.Helper()
	_ = h.store.WithExclusiveAccess(context.Background(), func(_ context.Context, tx *store.Tx) error {
		fn(tx.Find(store.ChannelKey{GuildID: testGuild, ChannelID: testChannel}))
		return nil
	})
}

func ledger(b *store.ChannelBinding, slot string) []store.ItemRecord {
	if b == nil {
		return nil
	}
	if u := b.User(slot); u != nil {
		return u.Items
	}
	return nil
}
