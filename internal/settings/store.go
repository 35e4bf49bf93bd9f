package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lepinkainen/tabskin/pkg/dbinterfaces"
)

// Store reads and writes UserSettings through a key-value store and memoizes the current language
type Store struct {
	kv dbinterfaces.KeyValueStore

	// mu covers the memo and orders saves against memo fills
	mu       sync.Mutex
	language string
	memoized bool
}

// NewStore creates a settings store over kv
func NewStore(kv dbinterfaces.KeyValueStore) *Store {
	return &Store{kv: kv}
}

// Load returns the stored settings, or Defaults when the entry is missing or malformed
func (s *Store) Load(ctx context.Context) UserSettings {
	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		slog.Warn("Failed to read settings, using defaults", "error", err)
		return Defaults()
	}
	if !ok {
		return Defaults()
	}

	settings, ok := decode(raw)
	if !ok {
		slog.Warn("Stored settings are malformed, using defaults")
		return Defaults()
	}
	return settings
}

// Save writes settings and drops the memoized language
func (s *Store) Save(ctx context.Context, settings UserSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The memo is dropped even when the write fails
	defer s.resetLocked()

	if err := s.kv.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	slog.Debug("Settings saved", "theme", settings.Theme, "language", settings.Language)
	return nil
}

// CurrentLanguage returns the stored language, memoized until the next Save
func (s *Store) CurrentLanguage(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.memoized {
		s.language = s.Load(ctx).Language
		s.memoized = true
	}
	return s.language
}

func (s *Store) resetLocked() {
	s.language = ""
	s.memoized = false
}
