package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Store holds every ChannelBinding in memory behind a single lock. Reads and
// writes of the binding set happen only inside WithExclusiveAccess.
type Store struct {
	persister Persister
	sem       chan struct{}
	bindings  []*ChannelBinding
}

type accessKey struct{}

func New(p Persister) *Store {
	return &Store{persister: p, sem: make(chan struct{}, 1)}
}

func (s *Store) Persister() Persister {
	return s.persister
}

// WithExclusiveAccess runs fn while holding the store lock. The lock is not
// re-entrant: calling it again with the ctx handed to fn panics. Waiting for
// the lock stops when ctx is done.
func (s *Store) WithExclusiveAccess(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	if held, _ := ctx.Value(accessKey{}).(*Store); held == s {
		panic("store: re-entrant WithExclusiveAccess")
	}
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	tx := &Tx{s: s}
	defer func() {
		tx.done.Store(true)
		<-s.sem
	}()
	return fn(context.WithValue(ctx, accessKey{}, s), tx)
}

// Tx is the view of the binding set handed to a WithExclusiveAccess callback.
// It must not be retained after the callback returns.
type Tx struct {
	s    *Store
	done atomic.Bool
}

func (tx *Tx) check() {
	if tx.done.Load() {
		panic("store: transaction used outside exclusive access")
	}
}

// Load replaces the in-memory bindings with the persisted ones and returns the
// bindings it displaced so their live sessions can be closed. Missing or
// corrupt state loads as an empty set.
func (tx *Tx) Load(ctx context.Context) ([]*ChannelBinding, error) {
	tx.check()
	displaced := tx.s.bindings

	raw, err := tx.s.persister.Read(ctx)
	if errors.Is(err, ErrNoState) {
		log.Info().Msg("no persisted sessions, starting empty")
		tx.s.bindings = nil
		return displaced, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}

	bindings, err := decodeBindings(raw)
	if err != nil {
		log.Warn().Err(err).Msg("persisted sessions are unreadable, starting empty")
		bindings = nil
	}
	tx.s.bindings = bindings
	return displaced, nil
}

// Save writes every binding, without live connection handles.
func (tx *Tx) Save(ctx context.Context) error {
	tx.check()
	bindings := tx.s.bindings
	if bindings == nil {
		bindings = []*ChannelBinding{}
	}
	raw, err := json.MarshalIndent(bindings, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encode", Err: err}
	}
	if err := tx.s.persister.Write(ctx, raw); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

func (tx *Tx) Bindings() []*ChannelBinding {
	tx.check()
	out := make([]*ChannelBinding, len(tx.s.bindings))
	copy(out, tx.s.bindings)
	return out
}

func (tx *Tx) Find(key ChannelKey) *ChannelBinding {
	tx.check()
	for _, b := range tx.s.bindings {
		if b.Key() == key {
			return b
		}
	}
	return nil
}

func (tx *Tx) FindBySession(sessionID string) *ChannelBinding {
	tx.check()
	if sessionID == "" {
		return nil
	}
	for _, b := range tx.s.bindings {
		if b.Session != nil && b.Session.ID() == sessionID {
			return b
		}
	}
	return nil
}

// Ensure returns the binding for key, creating an empty one when absent.
func (tx *Tx) Ensure(key ChannelKey) (*ChannelBinding, bool) {
	if b := tx.Find(key); b != nil {
		return b, false
	}
	b := &ChannelBinding{GuildID: key.GuildID, ChannelID: key.ChannelID, Users: []*UserBinding{}}
	tx.s.bindings = append(tx.s.bindings, b)
	return b, true
}

func (tx *Tx) Remove(key ChannelKey) *ChannelBinding {
	tx.check()
	for i, b := range tx.s.bindings {
		if b.Key() == key {
			tx.s.bindings = append(tx.s.bindings[:i], tx.s.bindings[i+1:]...)
			return b
		}
	}
	return nil
}

// PruneEmpty drops bindings without any UserBinding and returns them.
func (tx *Tx) PruneEmpty() []*ChannelBinding {
	tx.check()
	kept := tx.s.bindings[:0]
	var pruned []*ChannelBinding
	for _, b := range tx.s.bindings {
		if b.Empty() {
			pruned = append(pruned, b)
			continue
		}
		kept = append(kept, b)
	}
	tx.s.bindings = kept
	return pruned
}

func decodeBindings(raw []byte) ([]*ChannelBinding, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var decoded []*ChannelBinding
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	out := make([]*ChannelBinding, 0, len(decoded))
	seen := make(map[ChannelKey]bool, len(decoded))
	for _, b := range decoded {
		if b == nil {
			continue
		}
		if seen[b.Key()] {
			log.Warn().Str("guild_id", b.GuildID).Str("channel_id", b.ChannelID).Msg("duplicate persisted channel ignored")
			continue
		}
		seen[b.Key()] = true
		users := b.Users[:0]
		for _, u := range b.Users {
			if u == nil {
				continue
			}
			if u.Items == nil {
				u.Items = []ItemRecord{}
			}
			users = append(users, u)
		}
		if users == nil {
			users = []*UserBinding{}
		}
		b.Users = users
		out = append(out, b)
	}
	return out, nil
}
