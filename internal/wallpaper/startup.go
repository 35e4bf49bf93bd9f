package wallpaper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lepinkainen/tabskin/pkg/errs"
)

// DefaultImageTTL is how long a painted image counts as fresh
const DefaultImageTTL = 12 * time.Hour

// State is a step of the startup sequence
type State int

// Startup states
const (
	StateCold State = iota
	StateCachedFresh
	StateCachedStale
	StateEmpty
	StateReady
)

func (s State) String() string {
	switch s {
	case StateCold:
		return "COLD"
	case StateCachedFresh:
		return "CACHED_FRESH"
	case StateCachedStale:
		return "CACHED_STALE"
	case StateEmpty:
		return "EMPTY"
	case StateReady:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

// Paint is what the startup paint put on screen
type Paint struct {
	Metadata Metadata
	// Cached is set when the image bytes were found in the blob cache
	Cached bool
}

// Boot tracks one startup sequence
type Boot struct {
	// Painted is the state reached by the paint attempt
	Painted State
	Paint   Paint
	// Fetching is set when a background fetch was launched
	Fetching bool

	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

// State returns the current startup state
func (b *Boot) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Boot) setState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	slog.Debug("Startup state", "from", b.state, "to", s)
	b.state = s
}

// Done is closed when the startup fetch, if any, has finished
func (b *Boot) Done() <-chan struct{} {
	return b.done
}

// Err returns the startup fetch error once Done is closed
func (b *Boot) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// IsFresh reports whether an image fetched at ts is still within ttl at now
func IsFresh(ts, now time.Time, ttl time.Duration) bool {
	return now.Sub(ts) < ttl
}

// Start paints the last image, dismisses the loader and, when the image is
// missing or stale, launches a non-forced fetch in the background. The loader
// is dismissed before any network activity.
func (c *Controller) Start(ctx context.Context, ttl time.Duration, dismissLoader func()) *Boot {
	if ttl <= 0 {
		ttl = DefaultImageTTL
	}
	boot := &Boot{state: StateCold, done: make(chan struct{})}

	paint, painted := c.paintLast(ctx)
	switch {
	case !painted:
		boot.Painted = StateEmpty
	case IsFresh(paint.Metadata.Timestamp, c.now(), ttl):
		boot.Painted = StateCachedFresh
	default:
		boot.Painted = StateCachedStale
	}
	boot.Paint = paint
	boot.setState(boot.Painted)

	if dismissLoader != nil {
		dismissLoader()
	}
	boot.setState(StateReady)

	if boot.Painted == StateCachedFresh {
		slog.Debug("Cached image is fresh, no immediate fetch required")
		close(boot.done)
		return boot
	}

	if !c.begin() {
		boot.err = ErrClosed
		close(boot.done)
		return boot
	}

	slog.Info("Fetching new image on startup", "state", boot.Painted)
	boot.Fetching = true
	go func() {
		defer c.active.Done()
		defer close(boot.done)

		_, err := c.fetch(ctx, false, false)
		if err == nil {
			return
		}

		boot.mu.Lock()
		boot.err = err
		boot.mu.Unlock()

		if errors.Is(err, ErrClosed) || c.life.Err() != nil {
			return
		}
		if _, hasImage := c.Current(context.WithoutCancel(ctx)); !hasImage && c.notifier != nil {
			c.notifier.Error(MsgFailedToLoadInitialImage)
			return
		}
		slog.Warn("Initial image loading failed, keeping cached image", "error", err)
	}()

	return boot
}

// paintLast puts the persisted image on screen, preferring cached bytes
func (c *Controller) paintLast(ctx context.Context) (Paint, bool) {
	m, ok, err := LoadMetadata(ctx, c.kv)
	if errs.IsPartialWrite(err) {
		slog.Warn("Image metadata is incomplete", "error", err)
	} else if err != nil {
		slog.Warn("Failed to load image metadata", "error", err)
		return Paint{}, false
	}
	if !ok {
		return Paint{}, false
	}

	paint := Paint{Metadata: m}
	if _, cached, err := c.blobs.Match(ctx, m.URL); err != nil {
		slog.Warn("Failed to read cached image", "url", m.URL, "error", err)
	} else {
		paint.Cached = cached
	}

	c.transition.SetBase(m.URL)
	slog.Debug("Painted last image", "url", m.URL, "cached", paint.Cached)
	return paint, true
}
