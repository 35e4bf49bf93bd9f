package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/tabskin/pkg/dbinterfaces"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// KeyValueStore persists flat string entries in the profile database
type KeyValueStore struct {
	db *Database
}

// Ensure KeyValueStore implements the shared interfaces
var (
	_ dbinterfaces.KeyValueStore = (*KeyValueStore)(nil)
	_ dbinterfaces.StatsProvider = (*KeyValueStore)(nil)
)

// NewKeyValueStore creates the kv table if needed and returns a store over it
func NewKeyValueStore(db *Database) (*KeyValueStore, error) {
	if err := db.ExecuteSchema(kvSchema); err != nil {
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	slog.Debug("Key-value store initialized", "path", db.Path())
	return &KeyValueStore{db: db}, nil
}

// Get returns the value stored under key
func (s *KeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.DB().QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value
func (s *KeyValueStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.DB().ExecContext(ctx,
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Remove deletes key; removing a missing key is not an error
func (s *KeyValueStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.DB().ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to remove key %q: %w", key, err)
	}
	return nil
}

// GetStats returns the number of stored keys
func (s *KeyValueStore) GetStats() (map[string]any, error) {
	var count int
	if err := s.db.DB().QueryRow("SELECT COUNT(*) FROM kv").Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count keys: %w", err)
	}
	return map[string]any{"keys": count}, nil
}
