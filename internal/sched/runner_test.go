package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	logx "arissbot/pkg/logx"
)

func TestRunnerBookkeeping(t *testing.T) {
	t.Parallel()
	r := New(logx.Nop())
	noop := func() {}

	if err := r.Add("track:100", time.Minute, noop); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Add("track:100", time.Minute, noop); !errors.Is(err, ErrExists) {
		t.Fatalf("duplicate Add err = %v, want ErrExists", err)
	}
	if err := r.Add("watch:100", 5*time.Second, noop); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if !r.Has("track:100") || !r.Has("watch:100") {
		t.Fatal("Has lost track of scheduled keys")
	}
	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}

	if !r.Remove("track:100") {
		t.Fatal("Remove returned false for scheduled key")
	}
	if r.Remove("track:100") {
		t.Fatal("Remove returned true for missing key")
	}
	if r.Has("track:100") {
		t.Fatal("key still present after Remove")
	}

	// A removed key can be re-added (re-subscribe after cancel).
	if err := r.Add("track:100", time.Minute, noop); err != nil {
		t.Fatalf("re-Add: %v", err)
	}
}

func TestRunnerFires(t *testing.T) {
	t.Parallel()
	r := New(logx.Nop())
	fired := make(chan struct{}, 4)
	if err := r.Add("watch:1", time.Second, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	r.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		r.Stop(ctx)
	}()

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}
}
