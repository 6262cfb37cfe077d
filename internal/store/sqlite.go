// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Persists the chats and chatTitles maps as JSON blobs in a key-value table

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Fixed keys for the two persisted maps.
const (
	keyChats  = "chats"
	keyTitles = "chatTitles"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// LoadChats returns the stored conversation map, or an empty map if the
// "chats" key has never been written.
func (s *SQLiteStore) LoadChats(ctx context.Context) (map[string][]Message, error) {
	chats := make(map[string][]Message)
	if err := s.loadJSON(ctx, keyChats, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// SaveChats replaces the stored conversation map.
func (s *SQLiteStore) SaveChats(ctx context.Context, chats map[string][]Message) error {
	return s.saveJSON(ctx, keyChats, chats)
}

// LoadTitles returns the stored title map, or an empty map if the
// "chatTitles" key has never been written.
func (s *SQLiteStore) LoadTitles(ctx context.Context) (map[string]string, error) {
	titles := make(map[string]string)
	if err := s.loadJSON(ctx, keyTitles, &titles); err != nil {
		return nil, err
	}
	return titles, nil
}

// SaveTitles replaces the stored title map.
func (s *SQLiteStore) SaveTitles(ctx context.Context, titles map[string]string) error {
	return s.saveJSON(ctx, keyTitles, titles)
}

// loadJSON unmarshals the value stored under key into dst.
// A missing row leaves dst untouched (absent key == empty map).
func (s *SQLiteStore) loadJSON(ctx context.Context, key string, dst any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM state WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

// saveJSON marshals v and upserts it under key.
func (s *SQLiteStore) saveJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(data))
	if err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
