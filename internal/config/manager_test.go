package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
  poll_timeout: "10s"
logging:
  level: "info"
  console: true
  file:
    enabled: false
    path: ""
storage:
  driver: "sqlite"
  path: "./arissbot.db"
tracker:
  track_interval: "60s"
  watch_interval: "5s"
  inactive_after: "6h"
`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("driver = %q", cfg.Storage.Driver)
	}

	gap, err := ParseDurationOrDefault("tracker.inactive_after", cfg.Tracker.InactiveAfter, 6*time.Hour)
	if err != nil || gap != 6*time.Hour {
		t.Fatalf("inactive_after = (%v, %v)", gap, err)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get returned a different config than Load")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
  tokenn: "typo"
`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsBadDuration(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
tracker:
  track_interval: "sixty seconds"
`)
	_, err := NewManager(path).Parse()
	if err == nil || !strings.Contains(err.Error(), "tracker.track_interval") {
		t.Fatalf("err = %v, want tracker.track_interval duration error", err)
	}
}

func TestParseRequiresToken(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"telegram": {"token": ""}}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for missing token")
	}
}
