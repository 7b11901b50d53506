package bot

import (
	"context"
	"testing"
	"time"

	"arissbot/internal/ariss"
	"arissbot/internal/storage"
	logx "arissbot/pkg/logx"
)

func TestParseGap(t *testing.T) {
	t.Parallel()
	def := 6 * time.Hour
	tests := []struct {
		arg     string
		want    time.Duration
		wantErr bool
	}{
		{"", def, false},
		{"6h", 6 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"21600", 6 * time.Hour, false},
		{"1.5", 1500 * time.Millisecond, false},
		{"0", 0, true},
		{"-30", 0, true},
		{"-1h", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := parseGap(tt.arg, def)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseGap(%q) = %v, want error", tt.arg, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseGap(%q): %v", tt.arg, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseGap(%q) = %v, want %v", tt.arg, got, tt.want)
		}
	}
}

func TestJobKey(t *testing.T) {
	t.Parallel()
	if got := jobKey(storage.KindTrack, 42); got != "track:42" {
		t.Fatalf("jobKey = %q", got)
	}
	if got := jobKey(storage.KindWatch, -7); got != "watch:-7" {
		t.Fatalf("jobKey = %q", got)
	}
	if jobKey(storage.KindTrack, 1) == jobKey(storage.KindWatch, 1) {
		t.Fatal("kinds must not collide on the same chat")
	}
}

// In a group chat a cancellation may come from a different member than the
// one who subscribed. State must be deleted under the original subscriber's
// ID, not the canceller's, or the stored slot is orphaned and a later
// re-subscribe would skip its fresh bootstrap.
func TestResolveSubscriberPrefersStoredRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := storage.Open(storage.Config{Driver: "file", Path: t.TempDir()}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	sub := storage.Subscription{
		ChatID:     -100200,
		Kind:       storage.KindTrack,
		Subscriber: "111",
		Gap:        6 * time.Hour,
		CreatedAt:  time.Now().UTC(),
	}
	if err := store.SaveSubscription(ctx, sub); err != nil {
		t.Fatalf("save subscription: %v", err)
	}
	key := storage.Key{Subscriber: sub.Subscriber, Kind: sub.Kind}
	if err := store.Put(ctx, key, ariss.Heard{Callsign: "PU2URT-12", Timestamp: "20240501123045"}); err != nil {
		t.Fatalf("put state: %v", err)
	}

	// Canceller "222" is not the subscriber; resolution must land on "111".
	got := resolveSubscriber(ctx, store, sub.ChatID, sub.Kind, "222")
	if got != "111" {
		t.Fatalf("resolveSubscriber = %q, want %q", got, "111")
	}
	if err := store.Delete(ctx, storage.Key{Subscriber: got, Kind: sub.Kind}); err != nil {
		t.Fatalf("delete state: %v", err)
	}
	if _, ok, err := store.Last(ctx, key); err != nil || ok {
		t.Fatalf("state slot still present after cancel: ok=%v err=%v", ok, err)
	}

	// Same kind, different chat: nothing persisted, fall back to the caller.
	if got := resolveSubscriber(ctx, store, 42, storage.KindTrack, "222"); got != "222" {
		t.Fatalf("fallback = %q, want %q", got, "222")
	}
	// Same chat, other kind is independent.
	if got := resolveSubscriber(ctx, store, sub.ChatID, storage.KindWatch, "222"); got != "222" {
		t.Fatalf("kind fallback = %q, want %q", got, "222")
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()
	c := Config{Token: "t"}.withDefaults()
	if c.PollTimeout != 10*time.Second {
		t.Fatalf("PollTimeout = %v", c.PollTimeout)
	}
	if c.TrackInterval != 60*time.Second || c.WatchInterval != 5*time.Second {
		t.Fatalf("intervals = %v / %v", c.TrackInterval, c.WatchInterval)
	}
	if c.SendRatePerSec <= 0 {
		t.Fatalf("SendRatePerSec = %v", c.SendRatePerSec)
	}
}
