package bridge

import (
	"context"

	"archipelalog/internal/archipelago"
	"archipelalog/internal/store"
)

// GameSession is a live connection to a session server.
type GameSession interface {
	store.Conn
	Subscribe(onItem func(archipelago.ItemEvent), onClosed func(reason string)) store.Subscription
}

type Dialer interface {
	Login(ctx context.Context, host string, port int, slot string) (GameSession, error)
	FetchCheckedLocations(ctx context.Context, host string, port int, slot string) ([]archipelago.ScoutedItem, error)
}

// Chat is the slice of the chat platform the coordinator talks to.
type Chat interface {
	SendChannelMessage(ctx context.Context, guildID, channelID, text string, emphasized bool) error
	ResolveDisplayName(ctx context.Context, identityID string) (string, error)
	Mention(identityID string) string
}

type archipelagoDialer struct {
	d *archipelago.Dialer
}

func NewArchipelagoDialer(d *archipelago.Dialer) Dialer {
	return archipelagoDialer{d: d}
}

func (a archipelagoDialer) Login(ctx context.Context, host string, port int, slot string) (GameSession, error) {
	s, err := a.d.Login(ctx, host, port, slot)
	if err != nil {
		return nil, err
	}
	return archipelagoSession{Session: s}, nil
}

func (a archipelagoDialer) FetchCheckedLocations(ctx context.Context, host string, port int, slot string) ([]archipelago.ScoutedItem, error) {
	return a.d.FetchCheckedLocations(ctx, host, port, slot)
}

type archipelagoSession struct {
	*archipelago.Session
}

func (s archipelagoSession) Subscribe(onItem func(archipelago.ItemEvent), onClosed func(string)) store.Subscription {
	return s.Session.Subscribe(onItem, onClosed)
}
