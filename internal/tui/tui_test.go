package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/tabskin/internal/app"
	"github.com/lepinkainen/tabskin/internal/settings"
	"github.com/lepinkainen/tabskin/internal/toast"
	"github.com/lepinkainen/tabskin/internal/wallpaper"
	"github.com/lepinkainen/tabskin/pkg/i18n"
)

type fakeClient struct {
	mu        sync.Mutex
	settings  settings.UserSettings
	image     *wallpaper.Metadata
	layers    wallpaper.Layers
	toasts    []toast.Toast
	refreshes int
	clears    int
	saveErr   error
}

func newFakeClient() *fakeClient {
	return &fakeClient{settings: settings.Defaults()}
}

func (f *fakeClient) Clock(now time.Time) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return app.FormatClock(now, f.settings.TimeFormat)
}

func (f *fakeClient) Message(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return i18n.Message(f.settings.Language, key)
}

func (f *fakeClient) Settings(context.Context) settings.UserSettings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings
}

func (f *fakeClient) SaveSettings(_ context.Context, s settings.UserSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.settings = s
	return nil
}

func (f *fakeClient) Refresh(context.Context) (wallpaper.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	f.image = &wallpaper.Metadata{
		URL:        "https://images.example.com/new.jpg",
		AuthorName: "Ansel",
		PhotoLink:  "https://unsplash.com/photos/new?utm_source=tabskin&utm_medium=referral",
	}
	f.layers = wallpaper.Layers{Base: f.image.URL}
	return wallpaper.Result{Metadata: *f.image}, nil
}

func (f *fakeClient) ClearCache(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.image = nil
	return nil
}

func (f *fakeClient) Current(context.Context) (wallpaper.Metadata, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.image == nil {
		return wallpaper.Metadata{}, false
	}
	return *f.image, true
}

func (f *fakeClient) Layers() wallpaper.Layers {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.layers
}

func (f *fakeClient) ActiveToasts() []toast.Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.toasts
}

var fixedNow = func() time.Time { return time.Date(2024, 3, 1, 14, 5, 0, 0, time.UTC) }

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the resulting command to completion
func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	next, cmd := m.Update(key(k))
	m = next.(Model)
	require.NotNil(t, cmd, "key %q should start an action", k)
	next, _ = m.Update(cmd())
	return next.(Model)
}

func TestLoaderUntilDismissed(t *testing.T) {
	client := newFakeClient()
	m := NewModel(context.Background(), client, fixedNow)

	assert.Contains(t, m.View(), "Loading…")
	assert.Contains(t, m.View(), "14:05")

	next, _ := m.Update(LoaderDismissedMsg{})
	assert.NotContains(t, next.View(), "Loading…")
}

func TestTickAdvancesClock(t *testing.T) {
	client := newFakeClient()
	m := NewModel(context.Background(), client, fixedNow)

	next, cmd := m.Update(TickMsg(time.Date(2024, 3, 1, 14, 6, 0, 0, time.UTC)))
	assert.NotNil(t, cmd)
	assert.Contains(t, next.View(), "14:06")
}

func TestRefreshShowsAttribution(t *testing.T) {
	client := newFakeClient()
	m := NewModel(context.Background(), client, fixedNow)
	assert.NotContains(t, m.View(), "Unsplash")

	m = press(t, m, "r")

	view := m.View()
	assert.Equal(t, 1, client.refreshes)
	assert.Contains(t, view, "Photo by Ansel on Unsplash")
	assert.Contains(t, view, "utm_source=tabskin")
	assert.Contains(t, view, "https://images.example.com/new.jpg")
}

func TestClearCacheDropsAttribution(t *testing.T) {
	client := newFakeClient()
	m := NewModel(context.Background(), client, fixedNow)
	m = press(t, m, "r")
	m = press(t, m, "c")

	assert.Equal(t, 1, client.clears)
	assert.NotContains(t, m.View(), "Unsplash")
}

func TestSettingsKeys(t *testing.T) {
	tests := []struct {
		key   string
		check func(t *testing.T, s settings.UserSettings, view string)
	}{
		{"t", func(t *testing.T, s settings.UserSettings, view string) {
			assert.Equal(t, "nature", s.Theme)
			assert.Contains(t, view, "Nature")
		}},
		{"a", func(t *testing.T, s settings.UserSettings, view string) {
			assert.True(t, s.AutoSwitchEnabled)
			assert.Contains(t, view, "every 60 min")
		}},
		{"f", func(t *testing.T, s settings.UserSettings, view string) {
			assert.Equal(t, settings.TimeFormat12, s.TimeFormat)
			assert.Contains(t, view, "02:05 PM")
		}},
		{"l", func(t *testing.T, s settings.UserSettings, view string) {
			assert.Equal(t, "ru", s.Language)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			client := newFakeClient()
			m := NewModel(context.Background(), client, fixedNow)
			m = press(t, m, tt.key)
			tt.check(t, client.Settings(context.Background()), m.View())
		})
	}
}

func TestOneActionAtATime(t *testing.T) {
	client := newFakeClient()
	m := NewModel(context.Background(), client, fixedNow)

	next, cmd := m.Update(key("r"))
	require.NotNil(t, cmd)
	m = next.(Model)
	assert.Contains(t, m.View(), "refresh…")

	_, second := m.Update(key("c"))
	assert.Nil(t, second)
}

func TestFailedActionClearsBusy(t *testing.T) {
	client := newFakeClient()
	client.saveErr = errors.New("disk full")
	m := NewModel(context.Background(), client, fixedNow)

	m = press(t, m, "t")
	assert.Equal(t, "wallpapers", client.Settings(context.Background()).Theme)
	assert.NotContains(t, m.View(), "theme…")
}

func TestToastsRendered(t *testing.T) {
	client := newFakeClient()
	client.toasts = []toast.Toast{
		{ID: 1, Level: toast.LevelInfo, Key: "settingsSaved", Text: "Settings saved successfully"},
		{ID: 2, Level: toast.LevelError, Key: "errorNetworkError", Text: "Network error: Unable to connect to image server"},
	}
	m := NewModel(context.Background(), client, fixedNow)

	view := m.View()
	assert.Less(t, strings.Index(view, "Settings saved"), strings.Index(view, "Network error"))

	client.toasts = nil
	next, _ := m.Update(ChangedMsg{})
	assert.NotContains(t, next.View(), "Settings saved")
}

func TestQuit(t *testing.T) {
	m := NewModel(context.Background(), newFakeClient(), fixedNow)
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestFormatLayers(t *testing.T) {
	tests := []struct {
		name   string
		layers wallpaper.Layers
		want   string
	}{
		{"empty", wallpaper.Layers{}, "none"},
		{"base", wallpaper.Layers{Base: "a.jpg"}, "a.jpg"},
		{"first fade", wallpaper.Layers{Overlay: "b.jpg"}, "fading in b.jpg"},
		{"cross fade", wallpaper.Layers{Base: "a.jpg", Overlay: "b.jpg"}, "a.jpg → b.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatLayers(tt.layers))
		})
	}
}

func TestFormatAttribution(t *testing.T) {
	ru := func(key string) string { return i18n.Message("ru", key) }
	en := func(key string) string { return i18n.Message("en", key) }

	assert.Equal(t, "Photo by Unknown on Unsplash", FormatAttribution(en, wallpaper.Metadata{}))
	assert.NotEqual(t, FormatAttribution(en, wallpaper.Metadata{AuthorName: "A"}), FormatAttribution(ru, wallpaper.Metadata{AuthorName: "A"}))
	assert.Equal(t, "custom", FormatTheme(en, "custom"))
	assert.Equal(t, "3D Render", FormatTheme(en, "render"))
}
