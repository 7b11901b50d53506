package track

import (
	"context"
	"fmt"
	"time"

	"arissbot/internal/ariss"
	"arissbot/internal/storage"
	logx "arissbot/pkg/logx"
)

// Config carries the thresholds for both watch modes. It is passed in
// explicitly at construction; the service has no ambient tunables.
type Config struct {
	// DefaultGap is the inactivity threshold used by tracking when a
	// subscriber doesn't pick one.
	DefaultGap time.Duration
	// WatchThreshold is the (tiny) gap used by callsign watching. Any
	// structural change qualifies; the threshold exists only so watching
	// can reuse the same evaluator as tracking.
	WatchThreshold time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultGap <= 0 {
		c.DefaultGap = 6 * time.Hour
	}
	if c.WatchThreshold <= 0 {
		c.WatchThreshold = time.Second
	}
	return c
}

// Fetcher retrieves the current last-heard record.
type Fetcher interface {
	LastHeard(ctx context.Context) (ariss.Heard, error)
}

// Result is one tick's outcome: whether a notification should be sent, and
// the rendered summary of the current record for direct display.
type Result struct {
	Fired   bool
	Summary string
}

// Service orchestrates the fetcher, the state store, and the activity
// evaluator for both subscription modes. It holds no per-subscription
// mutable state; ticks for different keys are independent.
type Service struct {
	cfg   Config
	fetch Fetcher
	store storage.Store
	log   logx.Logger

	now func() time.Time
}

func New(cfg Config, fetch Fetcher, store storage.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:   cfg.withDefaults(),
		fetch: fetch,
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// DefaultGap exposes the configured default tracking threshold.
func (s *Service) DefaultGap() time.Duration { return s.cfg.DefaultGap }

// LastHeard fetches the current record and renders the summary line. It is
// independent of any subscription.
func (s *Service) LastHeard(ctx context.Context) (string, error) {
	cur, err := s.fetch.LastHeard(ctx)
	if err != nil {
		return "", err
	}
	return RenderSummary(cur, s.now())
}

// TickTracking runs one tracking evaluation for the subscriber.
//
// The first tick for a key bootstraps the store with the current record and
// never fires; afterwards each tick evaluates against the previously stored
// record and unconditionally stores the current one (de-duplicated by the
// store).
func (s *Service) TickTracking(ctx context.Context, subscriber string, gap time.Duration) (Result, error) {
	if gap <= 0 {
		gap = s.cfg.DefaultGap
	}
	key := storage.Key{Subscriber: subscriber, Kind: storage.KindTrack}
	return s.tick(ctx, key, gap, "")
}

// TickWatching runs one watching evaluation for the subscriber. It fires
// only when the freshly heard callsign equals the target (which must
// already be uppercased by the chat layer at subscription time).
func (s *Service) TickWatching(ctx context.Context, subscriber, callsign string) (Result, error) {
	key := storage.Key{Subscriber: subscriber, Kind: storage.KindWatch}
	return s.tick(ctx, key, s.cfg.WatchThreshold, callsign)
}

func (s *Service) tick(ctx context.Context, key storage.Key, threshold time.Duration, targetCallsign string) (Result, error) {
	cur, err := s.fetch.LastHeard(ctx)
	if err != nil {
		return Result{}, err
	}
	now := s.now()

	summary, err := RenderSummary(cur, now)
	if err != nil {
		return Result{}, err
	}

	prev, ok, err := s.store.Last(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("load state for %s/%s: %w", key.Subscriber, key.Kind, err)
	}
	if !ok {
		// First contact: seed the slot, never fire.
		if err := s.store.Put(ctx, key, cur); err != nil {
			return Result{}, fmt.Errorf("bootstrap state for %s/%s: %w", key.Subscriber, key.Kind, err)
		}
		s.log.Info("state bootstrapped",
			logx.String("subscriber", key.Subscriber),
			logx.String("kind", string(key.Kind)))
		return Result{Fired: false, Summary: summary}, nil
	}

	fired, err := NewActivity(prev, cur, threshold, now)
	if err != nil {
		// A corrupt stored timestamp should not wedge the subscription:
		// overwrite it with the current record and move on.
		s.log.Warn("stored state unreadable; resetting",
			logx.String("subscriber", key.Subscriber),
			logx.String("kind", string(key.Kind)),
			logx.Err(err))
		fired = false
	}
	if fired && targetCallsign != "" && cur.Callsign != targetCallsign {
		fired = false
	}

	if err := s.store.Put(ctx, key, cur); err != nil {
		return Result{}, fmt.Errorf("store state for %s/%s: %w", key.Subscriber, key.Kind, err)
	}

	if fired {
		s.log.Info("new activity detected",
			logx.String("subscriber", key.Subscriber),
			logx.String("kind", string(key.Kind)),
			logx.String("callsign", cur.Callsign))
	}
	return Result{Fired: fired, Summary: summary}, nil
}

// Cancel removes all persisted state for the subscription key. Cancelling a
// key that was never bootstrapped is a no-op, so a later re-subscribe
// behaves as a fresh bootstrap.
func (s *Service) Cancel(ctx context.Context, subscriber string, kind storage.Kind) error {
	key := storage.Key{Subscriber: subscriber, Kind: kind}
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete state for %s/%s: %w", subscriber, kind, err)
	}
	s.log.Info("state deleted",
		logx.String("subscriber", subscriber),
		logx.String("kind", string(kind)))
	return nil
}
