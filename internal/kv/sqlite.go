package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS slots (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	revision   INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);
`

const upsertSQL = `
INSERT INTO slots (key, value, revision, updated_at)
VALUES (?, ?, 1, ?)
ON CONFLICT(key) DO UPDATE SET
	value      = excluded.value,
	revision   = slots.revision + 1,
	updated_at = excluded.updated_at
`

// DefaultBusyTimeout bounds how long a writer waits on another process's lock.
const DefaultBusyTimeout = 5 * time.Second

// SQLite stores slots in a SQLite database file. Several processes may open
// the same file; WAL mode lets readers proceed while one of them writes.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// SQLiteOption customizes OpenSQLite.
type SQLiteOption func(*sqliteConfig)

type sqliteConfig struct {
	busyTimeout time.Duration
	now         func() time.Time
}

// WithBusyTimeout overrides DefaultBusyTimeout.
func WithBusyTimeout(d time.Duration) SQLiteOption {
	return func(c *sqliteConfig) {
		if d > 0 {
			c.busyTimeout = d
		}
	}
}

// WithClock overrides the clock used for updated_at stamps.
func WithClock(now func() time.Time) SQLiteOption {
	return func(c *sqliteConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// OpenSQLite opens (creating if needed) the slot database at path. Use
// ":memory:" for a private database that lives as long as the store.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLite, error) {
	cfg := sqliteConfig{busyTimeout: DefaultBusyTimeout, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("kv: ensure store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn(path, cfg.busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("kv: open %s: %w", path, err)
	}
	// Each connection to :memory: is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("kv: apply schema: %w", err)
	}
	return &SQLite{db: db, now: cfg.now}, nil
}

// dsn carries the pragmas as _pragma parameters. busy_timeout and
// synchronous are per connection, and the driver replays the parameters on
// every connection the pool opens.
func dsn(path string, busy time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return path + "?" + q.Encode()
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, ErrClosed
	}
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, normalizeKey(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	key = normalizeKey(key)
	if key == "" {
		return errEmptyKey
	}
	if value == nil {
		value = []byte{}
	}
	stamp := s.now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, upsertSQL, key, value, stamp); err != nil {
		return fmt.Errorf("kv: put %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Revision(ctx context.Context, key string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrClosed
	}
	var rev int64
	err := s.db.QueryRowContext(ctx, `SELECT revision FROM slots WHERE key = ?`, normalizeKey(key)).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("kv: revision %s: %w", key, err)
	}
	return rev, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
