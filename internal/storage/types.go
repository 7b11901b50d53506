package storage

import (
	"context"
	"errors"
	"time"

	"arissbot/internal/ariss"
)

var ErrClosed = errors.New("storage closed")

// Kind selects one of the two watch modes a subscriber can hold.
type Kind string

const (
	KindTrack Kind = "track"
	KindWatch Kind = "watch"
)

// Key identifies one persisted state slot. A subscriber holds at most one
// active slot per kind at a time; the chat layer enforces that, the store
// assumes it.
type Key struct {
	Subscriber string
	Kind       Kind
}

// Subscription is an active repeating job, persisted so it can be re-armed
// after a restart.
type Subscription struct {
	ChatID     int64
	Kind       Kind
	Subscriber string        // state-store key, the Telegram user id
	Gap        time.Duration // track only: inactivity threshold
	Callsign   string        // watch only: target callsign, uppercased
	CreatedAt  time.Time
}

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file (default)
//   - "file": legacy per-key CSV append logs
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API used by the tracking core and the chat layer.
//
// Put is idempotent: storing a record structurally equal to the current one
// for that key is a no-op. Delete of a nonexistent key is a silent no-op.
type Store interface {
	Exists(ctx context.Context, key Key) (bool, error)
	Last(ctx context.Context, key Key) (ariss.Heard, bool, error)
	Put(ctx context.Context, key Key, h ariss.Heard) error
	Delete(ctx context.Context, key Key) error

	SaveSubscription(ctx context.Context, sub Subscription) error
	Subscriptions(ctx context.Context) ([]Subscription, error)
	DeleteSubscription(ctx context.Context, chatID int64, kind Kind) error

	Close() error
}
