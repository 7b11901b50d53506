package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"arissbot/internal/ariss"
	logx "arissbot/pkg/logx"
)

func openTestStore(t *testing.T, driver string) Store {
	t.Helper()
	dir := t.TempDir()
	path := dir
	if driver == "sqlite" {
		path = filepath.Join(dir, "arissbot.db")
	}
	st, err := Open(Config{Driver: driver, Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testDrivers(t *testing.T, fn func(t *testing.T, st Store)) {
	t.Helper()
	for _, driver := range []string{"sqlite", "file"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			fn(t, openTestStore(t, driver))
		})
	}
}

func TestStoreLifecycle(t *testing.T) {
	testDrivers(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		key := Key{Subscriber: "12345", Kind: KindTrack}

		ok, err := st.Exists(ctx, key)
		if err != nil || ok {
			t.Fatalf("Exists on empty store = (%v, %v), want (false, nil)", ok, err)
		}
		if _, ok, err := st.Last(ctx, key); err != nil || ok {
			t.Fatalf("Last on empty store = (ok=%v, %v), want (false, nil)", ok, err)
		}

		a := ariss.Heard{Callsign: "PU2URT-12", Timestamp: "20240501123045", Link: "https://findu.com/x"}
		if err := st.Put(ctx, key, a); err != nil {
			t.Fatalf("Put: %v", err)
		}

		ok, err = st.Exists(ctx, key)
		if err != nil || !ok {
			t.Fatalf("Exists after Put = (%v, %v), want (true, nil)", ok, err)
		}
		got, ok, err := st.Last(ctx, key)
		if err != nil || !ok {
			t.Fatalf("Last after Put = (ok=%v, %v)", ok, err)
		}
		if !got.Equal(a) {
			t.Fatalf("Last = %+v, want %+v", got, a)
		}

		b := ariss.Heard{Callsign: "N0CALL-7", Timestamp: "20240501140000"}
		if err := st.Put(ctx, key, b); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, _, _ = st.Last(ctx, key)
		if !got.Equal(b) {
			t.Fatalf("Last = %+v, want %+v", got, b)
		}

		if err := st.Delete(ctx, key); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if ok, _ := st.Exists(ctx, key); ok {
			t.Fatal("Exists after Delete = true")
		}
		// Deleting a nonexistent key is a silent no-op.
		if err := st.Delete(ctx, key); err != nil {
			t.Fatalf("Delete of missing key: %v", err)
		}
	})
}

func TestStorePutIdempotent(t *testing.T) {
	testDrivers(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		key := Key{Subscriber: "7", Kind: KindWatch}
		h := ariss.Heard{Callsign: "PU2URT-12", Timestamp: "20240501123045"}

		for i := 0; i < 3; i++ {
			if err := st.Put(ctx, key, h); err != nil {
				t.Fatalf("Put #%d: %v", i, err)
			}
		}
		got, ok, err := st.Last(ctx, key)
		if err != nil || !ok {
			t.Fatalf("Last = (ok=%v, %v)", ok, err)
		}
		if !got.Equal(h) {
			t.Fatalf("Last = %+v, want %+v", got, h)
		}
	})
}

func TestStoreKeysAreIndependent(t *testing.T) {
	testDrivers(t, func(t *testing.T, st Store) {
		ctx := context.Background()
		track := Key{Subscriber: "7", Kind: KindTrack}
		watch := Key{Subscriber: "7", Kind: KindWatch}

		a := ariss.Heard{Callsign: "A1AAA", Timestamp: "20240501120000"}
		b := ariss.Heard{Callsign: "B2BBB", Timestamp: "20240501130000"}
		if err := st.Put(ctx, track, a); err != nil {
			t.Fatalf("Put track: %v", err)
		}
		if err := st.Put(ctx, watch, b); err != nil {
			t.Fatalf("Put watch: %v", err)
		}

		if err := st.Delete(ctx, track); err != nil {
			t.Fatalf("Delete track: %v", err)
		}
		got, ok, err := st.Last(ctx, watch)
		if err != nil || !ok {
			t.Fatalf("Last watch = (ok=%v, %v)", ok, err)
		}
		if !got.Equal(b) {
			t.Fatalf("watch state disturbed: %+v", got)
		}
	})
}

func TestStoreSubscriptions(t *testing.T) {
	testDrivers(t, func(t *testing.T, st Store) {
		ctx := context.Background()

		subs, err := st.Subscriptions(ctx)
		if err != nil {
			t.Fatalf("Subscriptions: %v", err)
		}
		if len(subs) != 0 {
			t.Fatalf("expected empty, got %d", len(subs))
		}

		trk := Subscription{ChatID: 100, Kind: KindTrack, Subscriber: "7", Gap: 6 * time.Hour}
		wch := Subscription{ChatID: 100, Kind: KindWatch, Subscriber: "7", Callsign: "PU2URT-12"}
		if err := st.SaveSubscription(ctx, trk); err != nil {
			t.Fatalf("SaveSubscription: %v", err)
		}
		if err := st.SaveSubscription(ctx, wch); err != nil {
			t.Fatalf("SaveSubscription: %v", err)
		}

		subs, err = st.Subscriptions(ctx)
		if err != nil {
			t.Fatalf("Subscriptions: %v", err)
		}
		if len(subs) != 2 {
			t.Fatalf("expected 2 subscriptions, got %d", len(subs))
		}
		byKind := map[Kind]Subscription{}
		for _, s := range subs {
			byKind[s.Kind] = s
		}
		if got := byKind[KindTrack].Gap; got != 6*time.Hour {
			t.Fatalf("track gap = %v", got)
		}
		if got := byKind[KindWatch].Callsign; got != "PU2URT-12" {
			t.Fatalf("watch callsign = %q", got)
		}

		if err := st.DeleteSubscription(ctx, 100, KindTrack); err != nil {
			t.Fatalf("DeleteSubscription: %v", err)
		}
		subs, _ = st.Subscriptions(ctx)
		if len(subs) != 1 || subs[0].Kind != KindWatch {
			t.Fatalf("unexpected subscriptions after delete: %+v", subs)
		}
	})
}

func TestFileStoreLegacyLayout(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: dir}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	key := Key{Subscriber: "42", Kind: KindTrack}
	if err := st.Put(ctx, key, ariss.Heard{Callsign: "PU2URT-12", Timestamp: "20240501123045", Link: "https://findu.com/x"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "42-track.csv"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if got := strings.TrimSpace(string(b)); got != "PU2URT-12,20240501123045,https://findu.com/x" {
		t.Fatalf("csv line = %q", got)
	}
}

func TestFileStoreReadsLegacyData(t *testing.T) {
	dir := t.TempDir()
	// Pre-seeded legacy file: multiple lines, last is authoritative, no link.
	legacy := "OLD1-1,20240401000000,\nPU2URT-12,20240501123045,\n"
	if err := os.WriteFile(filepath.Join(dir, "42-watch.csv"), []byte(legacy), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	st, err := Open(Config{Driver: "file", Path: dir}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	h, ok, err := st.Last(context.Background(), Key{Subscriber: "42", Kind: KindWatch})
	if err != nil || !ok {
		t.Fatalf("Last = (ok=%v, %v)", ok, err)
	}
	if h.Callsign != "PU2URT-12" || h.Timestamp != "20240501123045" || h.Link != "" {
		t.Fatalf("unexpected record: %+v", h)
	}
}
