package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Tracker  TrackerConfig  `json:"tracker"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
	// SendRatePerSec caps outbound messages per second. 0 means default.
	SendRatePerSec int `json:"send_rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./arissbot.db" }
//
// The "file" driver points Path at a directory holding the legacy per-user
// CSV files.
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// TrackerConfig controls the activity-detection core and its cadences.
// All durations are Go duration strings.
type TrackerConfig struct {
	// URL overrides the ariss.net last-heard page. Leave empty for default.
	URL string `json:"url,omitempty"`
	// FetchTimeout bounds one page fetch. Default 10s.
	FetchTimeout string `json:"fetch_timeout,omitempty"`
	// TrackInterval is the tracking tick cadence. Default 60s.
	TrackInterval string `json:"track_interval,omitempty"`
	// WatchInterval is the watching tick cadence. Default 5s.
	WatchInterval string `json:"watch_interval,omitempty"`
	// InactiveAfter is the default tracking inactivity threshold. Default 6h.
	InactiveAfter string `json:"inactive_after,omitempty"`
}
