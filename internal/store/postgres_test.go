package store_test

import (
	"context"
	"errors"
	"testing"

	"archipelalog/internal/store"
	"archipelalog/internal/testutil"
)

func TestPostgresPersisterRoundTrip(t *testing.T) {
	p, cleanup := testutil.OpenTestPersister(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := p.Read(ctx); !errors.Is(err, store.ErrNoState) {
		t.Fatalf("expected ErrNoState on empty table, got %v", err)
	}

	st := store.New(p)
	key := store.ChannelKey{GuildID: "g", ChannelID: "c"}
	err := st.WithExclusiveAccess(ctx, func(ctx context.Context, tx *store.Tx) error {
		if _, err := tx.Load(ctx); err != nil {
			return err
		}
		b, _ := tx.Ensure(key)
		b.Hostname, b.Port = "localhost", 38281
		b.EnsureUser("Alice").Attach("42", false)
		if err := tx.Save(ctx); err != nil {
			return err
		}
		b.Port = 38282
		return tx.Save(ctx)
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := store.New(p)
	err = reloaded.WithExclusiveAccess(ctx, func(ctx context.Context, tx *store.Tx) error {
		if _, err := tx.Load(ctx); err != nil {
			return err
		}
		b := tx.Find(key)
		if b == nil || b.Port != 38282 {
			t.Fatalf("unexpected binding after reload: %+v", b)
		}
		if u := b.User("Alice"); u == nil || u.IdentityID != "42" {
			t.Fatalf("unexpected user after reload: %+v", u)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := p.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
