package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"arissbot/internal/ariss"
	logx "arissbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Exists(ctx context.Context, key Key) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrClosed
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM last_heard WHERE subscriber = ? AND kind = ?`,
		key.Subscriber, string(key.Kind)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *sqliteStore) Last(ctx context.Context, key Key) (ariss.Heard, bool, error) {
	if s == nil || s.db == nil {
		return ariss.Heard{}, false, ErrClosed
	}
	var h ariss.Heard
	err := s.db.QueryRowContext(ctx,
		`SELECT callsign, heard_at, link FROM last_heard WHERE subscriber = ? AND kind = ?`,
		key.Subscriber, string(key.Kind)).Scan(&h.Callsign, &h.Timestamp, &h.Link)
	if errors.Is(err, sql.ErrNoRows) {
		return ariss.Heard{}, false, nil
	}
	if err != nil {
		return ariss.Heard{}, false, err
	}
	return h, true, nil
}

func (s *sqliteStore) Put(ctx context.Context, key Key, h ariss.Heard) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	// Upsert keeps the slot single-entry; a structurally equal record simply
	// rewrites identical values.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO last_heard(subscriber, kind, callsign, heard_at, link, updated_at)
		 VALUES(?,?,?,?,?,?)
		 ON CONFLICT(subscriber, kind) DO UPDATE SET
		   callsign=excluded.callsign, heard_at=excluded.heard_at,
		   link=excluded.link, updated_at=excluded.updated_at`,
		key.Subscriber, string(key.Kind), h.Callsign, h.Timestamp, h.Link,
		time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *sqliteStore) Delete(ctx context.Context, key Key) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM last_heard WHERE subscriber = ? AND kind = ?`,
		key.Subscriber, string(key.Kind))
	return err
}

func (s *sqliteStore) SaveSubscription(ctx context.Context, sub Subscription) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	at := sub.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions(chat_id, kind, subscriber, gap_seconds, callsign, created_at)
		 VALUES(?,?,?,?,?,?)
		 ON CONFLICT(chat_id, kind) DO UPDATE SET
		   subscriber=excluded.subscriber, gap_seconds=excluded.gap_seconds,
		   callsign=excluded.callsign, created_at=excluded.created_at`,
		sub.ChatID, string(sub.Kind), sub.Subscriber, sub.Gap.Seconds(), sub.Callsign,
		at.Format(time.RFC3339Nano))
	return err
}

func (s *sqliteStore) Subscriptions(ctx context.Context) ([]Subscription, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, kind, subscriber, gap_seconds, callsign, created_at FROM subscriptions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var (
			sub       Subscription
			kind      string
			gapSec    float64
			createdAt string
		)
		if err := rows.Scan(&sub.ChatID, &kind, &sub.Subscriber, &gapSec, &sub.Callsign, &createdAt); err != nil {
			return nil, err
		}
		sub.Kind = Kind(kind)
		sub.Gap = time.Duration(gapSec * float64(time.Second))
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			sub.CreatedAt = t
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *sqliteStore) DeleteSubscription(ctx context.Context, chatID int64, kind Kind) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE chat_id = ? AND kind = ?`,
		chatID, string(kind))
	return err
}
