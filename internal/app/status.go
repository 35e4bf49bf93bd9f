package app

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lepinkainen/tabskin/internal/wallpaper"
	"github.com/lepinkainen/tabskin/pkg/database"
	"github.com/lepinkainen/tabskin/pkg/dbinterfaces"
	"github.com/lepinkainen/tabskin/templates"
)

// StatusTemplate is the template rendered by RenderStatus
const StatusTemplate = "status.tmpl"

var (
	// templateOverrideFS points at a developer-provided templates directory
	templateOverrideFS fs.FS = os.DirFS("templates")
	// templateFallbackFS is the embedded filesystem baked into the binary
	templateFallbackFS fs.FS = templates.EmbeddedTemplates
)

// Status is a snapshot of the client for display
type Status struct {
	Endpoint        string
	Profile         string
	ProfileSize     string
	ProfileKeys     int
	ServerAvailable bool
	Theme           string
	Language        string
	TimeFormat      string
	AutoSwitch      string
	Transition      bool

	Image    *wallpaper.Metadata
	ImageAge string
	Fresh    bool

	CacheEntries int
	CacheBytes   int64
	CacheSize    string
	CacheLimit   string
}

// Status collects the current state as of now
func (a *App) Status(ctx context.Context, now time.Time) (Status, error) {
	s := a.store.Load(ctx)

	status := Status{
		Endpoint:        a.cfg.Client.Endpoint,
		Profile:         a.db.Path(),
		ServerAvailable: a.controller.ServerAvailable(),
		Theme:           s.Theme,
		Language:        s.Language,
		TimeFormat:      s.TimeFormat,
		AutoSwitch:      "off",
		Transition:      s.TransitionEnabled,
		CacheLimit:      humanize.IBytes(uint64(a.cfg.Client.CacheSizeLimit())),
	}
	if s.AutoSwitchEnabled {
		status.AutoSwitch = fmt.Sprintf("every %d min", s.AutoSwitchIntervalMinutes)
	}

	if m, ok := a.controller.Current(ctx); ok {
		status.Image = &m
		status.ImageAge = humanize.RelTime(m.Timestamp, now, "ago", "from now")
		status.Fresh = wallpaper.IsFresh(m.Timestamp, now, a.cfg.Client.ImageTTL)
	}

	if size, err := database.GetDatabaseSize(a.db.Path()); err == nil {
		status.ProfileSize = humanize.IBytes(uint64(size))
	}
	if keys, err := statInt(a.kv, "keys"); err == nil {
		status.ProfileKeys = int(keys)
	}

	entries, err := statInt(a.blobs, "entries")
	if err != nil {
		return Status{}, err
	}
	total, err := statInt(a.blobs, "total_bytes")
	if err != nil {
		return Status{}, err
	}
	status.CacheEntries = int(entries)
	status.CacheBytes = total
	status.CacheSize = humanize.IBytes(uint64(total))

	return status, nil
}

// statInt reads one numeric statistic from a store
func statInt(p dbinterfaces.StatsProvider, key string) (int64, error) {
	stats, err := p.GetStats()
	if err != nil {
		return 0, err
	}
	switch v := stats[key].(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("statistic %q has type %T", key, stats[key])
	}
}

// RenderStatus writes status through the status template. A templates
// directory in the working directory overrides the embedded template.
func RenderStatus(w io.Writer, status Status) error {
	tmpl, err := loadTemplate(StatusTemplate)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(w, status); err != nil {
		return fmt.Errorf("failed to render %s: %w", StatusTemplate, err)
	}
	return nil
}

func loadTemplate(name string) (*template.Template, error) {
	for _, fsys := range []fs.FS{templateOverrideFS, templateFallbackFS} {
		if fsys == nil {
			continue
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			continue
		}
		tmpl, err := template.New(name).Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		return tmpl, nil
	}
	return nil, fmt.Errorf("template %s not found", name)
}
