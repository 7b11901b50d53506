package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"arissbot/internal/ariss"
	logx "arissbot/pkg/logx"
)

// fileStore is the legacy persistence backend.
//
// Files under the configured directory:
//   - <subscriber>-<kind>.csv  (append-only, lines "callsign,timestamp,link",
//     only the last line is authoritative)
//   - subscriptions.json       (snapshot of active subscriptions)
//
// The CSV layout matches the original db/ directory so existing data can be
// dropped in unchanged.
type fileStore struct {
	dir string
	log logx.Logger

	mu     sync.Mutex
	closed bool
}

type subscriptionRecord struct {
	ChatID     int64   `json:"chat_id"`
	Kind       string  `json:"kind"`
	Subscriber string  `json:"subscriber"`
	GapSeconds float64 `json:"gap_seconds,omitempty"`
	Callsign   string  `json:"callsign,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{dir: dir, log: log}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fileStore) keyPath(key Key) string {
	return filepath.Join(s.dir, key.Subscriber+"-"+string(key.Kind)+".csv")
}

func (s *fileStore) subsPath() string {
	return filepath.Join(s.dir, "subscriptions.json")
}

func (s *fileStore) Exists(ctx context.Context, key Key) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	_, err := os.Stat(s.keyPath(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *fileStore) Last(ctx context.Context, key Key) (ariss.Heard, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ariss.Heard{}, false, ErrClosed
	}
	return s.lastLocked(key)
}

func (s *fileStore) lastLocked(key Key) (ariss.Heard, bool, error) {
	f, err := os.Open(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ariss.Heard{}, false, nil
		}
		return ariss.Heard{}, false, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var last []string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ariss.Heard{}, false, err
		}
		last = row
	}
	if len(last) < 2 {
		return ariss.Heard{}, false, nil
	}
	h := ariss.Heard{Callsign: last[0], Timestamp: last[1]}
	if len(last) > 2 {
		h.Link = last[2]
	}
	return h, true, nil
}

func (s *fileStore) Put(ctx context.Context, key Key, h ariss.Heard) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	// De-duplicate against the last line to keep the log from growing while
	// the upstream page is unchanged.
	prev, ok, err := s.lastLocked(key)
	if err != nil {
		return err
	}
	if ok && prev.Equal(h) {
		return nil
	}

	f, err := os.OpenFile(s.keyPath(key), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{h.Callsign, h.Timestamp, h.Link}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (s *fileStore) Delete(ctx context.Context, key Key) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	err := os.Remove(s.keyPath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *fileStore) SaveSubscription(ctx context.Context, sub Subscription) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	recs, err := s.readSubsLocked()
	if err != nil {
		return err
	}

	at := sub.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	next := subscriptionRecord{
		ChatID:     sub.ChatID,
		Kind:       string(sub.Kind),
		Subscriber: sub.Subscriber,
		GapSeconds: sub.Gap.Seconds(),
		Callsign:   sub.Callsign,
		CreatedAt:  at.Format(time.RFC3339Nano),
	}

	replaced := false
	for i, r := range recs {
		if r.ChatID == next.ChatID && r.Kind == next.Kind {
			recs[i] = next
			replaced = true
			break
		}
	}
	if !replaced {
		recs = append(recs, next)
	}
	return s.writeSubsLocked(recs)
}

func (s *fileStore) Subscriptions(ctx context.Context) ([]Subscription, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	recs, err := s.readSubsLocked()
	if err != nil {
		return nil, err
	}
	out := make([]Subscription, 0, len(recs))
	for _, r := range recs {
		sub := Subscription{
			ChatID:     r.ChatID,
			Kind:       Kind(r.Kind),
			Subscriber: r.Subscriber,
			Gap:        time.Duration(r.GapSeconds * float64(time.Second)),
			Callsign:   r.Callsign,
		}
		if t, err := time.Parse(time.RFC3339Nano, r.CreatedAt); err == nil {
			sub.CreatedAt = t
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *fileStore) DeleteSubscription(ctx context.Context, chatID int64, kind Kind) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	recs, err := s.readSubsLocked()
	if err != nil {
		return err
	}
	kept := recs[:0]
	for _, r := range recs {
		if r.ChatID == chatID && r.Kind == string(kind) {
			continue
		}
		kept = append(kept, r)
	}
	return s.writeSubsLocked(kept)
}

func (s *fileStore) readSubsLocked() ([]subscriptionRecord, error) {
	b, err := os.ReadFile(s.subsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	var recs []subscriptionRecord
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *fileStore) writeSubsLocked(recs []subscriptionRecord) error {
	b, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	tmp := s.subsPath() + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.subsPath())
}
