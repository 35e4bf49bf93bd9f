package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/tabskin/pkg/database"
)

func newTestStore(t *testing.T) (*Store, *database.KeyValueStore) {
	t.Helper()

	db, err := database.NewDatabase(database.Config{Path: filepath.Join(t.TempDir(), "profile.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	kv, err := database.NewKeyValueStore(db)
	require.NoError(t, err)
	return NewStore(kv), kv
}

func TestLoadDefaults(t *testing.T) {
	tests := []struct {
		name   string
		stored string
	}{
		{name: "missing entry"},
		{name: "not JSON", stored: "{oops"},
		{name: "partial object", stored: `{"language":"ru"}`},
		{name: "unsupported language", stored: `{"language":"de","timeFormat":"24","theme":"space","autoSwitchIntervalMinutes":5}`},
		{name: "zero interval", stored: `{"language":"ru","timeFormat":"12","theme":"space","autoSwitchIntervalMinutes":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, kv := newTestStore(t)
			ctx := context.Background()

			if tt.stored != "" {
				require.NoError(t, kv.Set(ctx, StorageKey, tt.stored))
			}

			assert.Equal(t, Defaults(), store.Load(ctx))
		})
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	want := UserSettings{
		Language:                  "ru",
		TimeFormat:                TimeFormat12,
		Theme:                     "space",
		AutoSwitchEnabled:         true,
		AutoSwitchIntervalMinutes: 15,
		TransitionEnabled:         false,
	}

	require.NoError(t, store.Save(ctx, want))
	assert.Equal(t, want, store.Load(ctx))

	require.NoError(t, store.Save(ctx, want))
	assert.Equal(t, want, store.Load(ctx))
	assert.Equal(t, "ru", store.CurrentLanguage(ctx))
}

func TestCurrentLanguageMemo(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	assert.Equal(t, "en", store.CurrentLanguage(ctx))

	// A write that bypasses Save is not observed: the memo is only dropped by Save
	ru := Defaults()
	ru.Language = "ru"
	raw := `{"language":"ru","timeFormat":"24","theme":"wallpapers","autoSwitchEnabled":false,"autoSwitchIntervalMinutes":60,"transitionEnabled":true}`
	require.NoError(t, kv.Set(ctx, StorageKey, raw))
	assert.Equal(t, "en", store.CurrentLanguage(ctx))

	require.NoError(t, store.Save(ctx, ru))
	assert.Equal(t, "ru", store.CurrentLanguage(ctx))

	en := Defaults()
	require.NoError(t, store.Save(ctx, en))
	assert.Equal(t, "en", store.CurrentLanguage(ctx))
}

func TestSaveRejectsInvalid(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	bad := Defaults()
	bad.TimeFormat = "36"

	assert.Error(t, store.Save(ctx, bad))
	assert.Equal(t, Defaults(), store.Load(ctx))
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (failingKV) Set(context.Context, string, string) error          { return errors.New("disk gone") }
func (failingKV) Remove(context.Context, string) error               { return errors.New("disk gone") }

func TestStoreFailures(t *testing.T) {
	store := NewStore(failingKV{})
	ctx := context.Background()

	assert.Equal(t, Defaults(), store.Load(ctx))
	assert.Error(t, store.Save(ctx, Defaults()))
	assert.Equal(t, "en", store.CurrentLanguage(ctx))
}

func TestNextTheme(t *testing.T) {
	assert.Equal(t, "nature", NextTheme("wallpapers"))
	assert.Equal(t, "wallpapers", NextTheme("street"))
	assert.Equal(t, "wallpapers", NextTheme("custom-query"))
}
