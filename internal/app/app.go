// Package app wires the new-tab client together and exposes the user-facing actions.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lepinkainen/tabskin/internal/config"
	"github.com/lepinkainen/tabskin/internal/scheduler"
	"github.com/lepinkainen/tabskin/internal/settings"
	"github.com/lepinkainen/tabskin/internal/toast"
	"github.com/lepinkainen/tabskin/internal/wallpaper"
	"github.com/lepinkainen/tabskin/pkg/api"
	"github.com/lepinkainen/tabskin/pkg/blobcache"
	"github.com/lepinkainen/tabskin/pkg/database"
	"github.com/lepinkainen/tabskin/pkg/filesystem"
	httputil "github.com/lepinkainen/tabskin/pkg/http"
	"github.com/lepinkainen/tabskin/pkg/i18n"
)

// ProfileFile is the database file inside the data directory
const ProfileFile = "profile.db"

// Message keys raised by user actions
const (
	MsgSettingsSaved      = "settingsSaved"
	MsgCacheCleared       = "cacheCleared"
	MsgFailedToClearCache = "errorFailedToClearCache"
)

// App owns every long-lived client component
type App struct {
	cfg        *config.Config
	db         *database.Database
	kv         *database.KeyValueStore
	store      *settings.Store
	blobs      *blobcache.Cache
	controller *wallpaper.Controller
	scheduler  *scheduler.Scheduler
	toasts     *toast.Center

	mu         sync.Mutex
	timeFormat string
}

// Open opens the profile database and constructs the client
func Open(cfg *config.Config) (*App, error) {
	profile, err := filesystem.ProfilePath(cfg.Client.DataDir, ProfileFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile path: %w", err)
	}

	if !database.DatabaseExists(profile) {
		slog.Info("Creating new profile", "path", profile)
	}

	db, err := database.NewDatabase(database.Config{Path: profile})
	if err != nil {
		return nil, fmt.Errorf("failed to open profile: %w", err)
	}

	kv, err := database.NewKeyValueStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	httpConfig := httputil.DefaultConfig()
	httpConfig.Timeout = cfg.Client.RequestTimeout
	httpConfig.MaxRetries = cfg.Client.MaxRetries
	httpConfig.RetryBackoff = cfg.Client.RetryDelay
	client := httputil.NewClient(httpConfig)

	blobs, err := blobcache.New(db, client, blobcache.Policy{Limit: cfg.Client.CacheSizeLimit()})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{
		cfg:        cfg,
		db:         db,
		kv:         kv,
		store:      settings.NewStore(kv),
		blobs:      blobs,
		timeFormat: settings.TimeFormat24,
	}

	a.toasts = toast.NewCenter(cfg.Client.ToastDuration, a.Language)
	a.controller = wallpaper.NewController(
		api.NewPhotoClient(cfg.Client.Endpoint, client),
		blobs,
		kv,
		a.toasts,
		wallpaper.NewTransition(cfg.Client.FadeDuration),
	)
	a.scheduler = scheduler.New(func(ctx context.Context) error {
		_, err := a.controller.FetchAndUpdateImage(ctx, true)
		return err
	})

	if info, err := database.GetDatabaseInfo(db); err == nil {
		slog.Debug("Client opened",
			"profile", profile,
			"endpoint", cfg.Client.Endpoint,
			"sqlite", info["sqlite_version"],
			"tables", info["table_count"])
	}
	return a, nil
}

// Start applies the stored settings and runs the startup sequence
func (a *App) Start(ctx context.Context, dismissLoader func()) *wallpaper.Boot {
	a.ApplySettings(a.store.Load(ctx))
	return a.controller.Start(ctx, a.cfg.Client.ImageTTL, dismissLoader)
}

// ApplySettings pushes settings into the running components. Applying the
// same settings again leaves exactly the same state.
func (a *App) ApplySettings(s settings.UserSettings) {
	a.controller.SetTheme(s.Theme)
	a.controller.Transition().SetEnabled(s.TransitionEnabled)
	a.scheduler.Apply(s.AutoSwitchEnabled, s.AutoSwitchIntervalMinutes)

	a.mu.Lock()
	a.timeFormat = s.TimeFormat
	a.mu.Unlock()

	slog.Debug("Settings applied",
		"theme", s.Theme,
		"autoSwitch", s.AutoSwitchEnabled,
		"interval", s.AutoSwitchIntervalMinutes)
}

// Settings returns the stored settings
func (a *App) Settings(ctx context.Context) settings.UserSettings {
	return a.store.Load(ctx)
}

// SaveSettings stores, applies and confirms new settings
func (a *App) SaveSettings(ctx context.Context, s settings.UserSettings) error {
	if err := a.store.Save(ctx, s); err != nil {
		return err
	}
	a.ApplySettings(s)
	a.toasts.Info(MsgSettingsSaved)
	return nil
}

// Refresh forces a new image
func (a *App) Refresh(ctx context.Context) (wallpaper.Result, error) {
	return a.controller.FetchAndUpdateImage(ctx, true)
}

// ClearCache drops every cached image and the last-image metadata
func (a *App) ClearCache(ctx context.Context) error {
	err := errors.Join(
		a.blobs.Clear(ctx),
		wallpaper.ClearMetadata(ctx, a.kv),
	)
	if err != nil {
		slog.Error("Failed to clear cache", "error", err)
		a.toasts.Error(MsgFailedToClearCache)
		return err
	}

	a.toasts.Info(MsgCacheCleared)
	return nil
}

// CacheSize returns the bytes held by the image cache and a display string
func (a *App) CacheSize(ctx context.Context) (int64, string, error) {
	total, err := a.blobs.TotalBytes(ctx)
	if err != nil {
		return 0, "", err
	}
	return total, humanize.IBytes(uint64(total)), nil
}

// Language returns the current interface language
func (a *App) Language() string {
	return a.store.CurrentLanguage(context.Background())
}

// Message looks up key in the current language
func (a *App) Message(key string) string {
	return i18n.Message(a.Language(), key)
}

// Clock formats now in the applied time format
func (a *App) Clock(now time.Time) string {
	a.mu.Lock()
	format := a.timeFormat
	a.mu.Unlock()
	return FormatClock(now, format)
}

// Current returns the last persisted image
func (a *App) Current(ctx context.Context) (wallpaper.Metadata, bool) {
	return a.controller.Current(ctx)
}

// Layers returns the background layers on screen
func (a *App) Layers() wallpaper.Layers {
	return a.controller.Transition().Layers()
}

// ActiveToasts returns the visible notifications
func (a *App) ActiveToasts() []toast.Toast {
	return a.toasts.Active()
}

// Controller exposes the acquisition controller
func (a *App) Controller() *wallpaper.Controller {
	return a.controller
}

// Toasts exposes the notification center
func (a *App) Toasts() *toast.Center {
	return a.toasts
}

// Scheduler exposes the auto-switch scheduler
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

// Close stops background work and closes the profile
func (a *App) Close() error {
	a.scheduler.Stop()
	a.controller.Shutdown()
	a.controller.Transition().Stop()
	a.toasts.Close()
	return a.db.Close()
}

// FormatClock renders now as HH:MM or hh:MM AM/PM
func FormatClock(now time.Time, format string) string {
	if format == settings.TimeFormat12 {
		return now.Format("03:04 PM")
	}
	return now.Format("15:04")
}
