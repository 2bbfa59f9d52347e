package state

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"harvester/internal/config"
)

const (
	busyTimeoutMillis = 5000
	timeLayout        = "2006-01-02T15:04:05.000000000Z"
)

// Store persists processed items and checkpoints in SQLite.
type Store struct {
	db   *sql.DB
	path string

	// writeMu serializes writers so two updates to one id cannot interleave.
	writeMu sync.Mutex
	now     func() time.Time
}

// OpenConfig opens the state database configured by paths.state_dir and state.db_name.
func OpenConfig(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("open state: config is nil")
	}
	return Open(cfg.StateDBPath())
}

// Open initializes or connects to the state database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("open state: database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// dsn carries the pragmas in the connection string so every pooled
// connection is configured, not just the first one.
func dsn(path string) string {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis))
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + path + "?" + params.Encode()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseTime(raw sql.NullString) time.Time {
	if !raw.Valid || raw.String == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(timeLayout, raw.String); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw.String); err == nil {
		return ts.UTC()
	}
	return time.Time{}
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableBytes(value []byte) any {
	if len(value) == 0 {
		return nil
	}
	return string(value)
}
