// Package store keeps threads in a local SQLite database and serves the
// render states the list is built from.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"
)

const dbFileName = "threads.sqlite"

type Store struct {
	Dir string

	db  *sql.DB
	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open creates dir if needed, opens the database in it and migrates the
// schema.
func Open(ctx context.Context, dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("store: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &Store{Dir: filepath.Clean(dir), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	db, err := openSQLite(ctx, s.Path())
	if err != nil {
		return nil, err
	}
	s.db = db
	return s, nil
}

func (s *Store) Path() string { return filepath.Join(s.Dir, dbFileName) }

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// DiscoverDir walks up from start looking for a .threadlist directory.
func DiscoverDir(start string) (string, bool) {
	dir := start
	for {
		candidate := filepath.Join(dir, ".threadlist")
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// DefaultDir is the nearest .threadlist directory above the working
// directory, or ~/.threadlist when there is none.
func DefaultDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if found, ok := DiscoverDir(cwd); ok {
		return found, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".threadlist"), nil
}

func (s *Store) nowMs() int64 { return s.now().UTC().UnixMilli() }

func fromMs(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
