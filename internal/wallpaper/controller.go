package wallpaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lepinkainen/tabskin/pkg/api"
	"github.com/lepinkainen/tabskin/pkg/dbinterfaces"
	"github.com/lepinkainen/tabskin/pkg/errs"
)

// Message keys for acquisition failures
const (
	MsgFailedToLoadImage        = "errorFailedToLoadImage"
	MsgNetworkError             = "errorNetworkError"
	MsgServerError              = "errorServerError"
	MsgServiceError             = "errorServiceError"
	MsgFailedToLoadInitialImage = "errorFailedToLoadInitialImage"
)

// DefaultThemeQuery is used until settings are applied
const DefaultThemeQuery = "wallpapers"

// ErrClosed is returned by acquisitions requested after Shutdown
var ErrClosed = errors.New("wallpaper controller is shut down")

// trackingTimeout bounds the fire-and-forget download tracking call
const trackingTimeout = 10 * time.Second

// PhotoSource fetches photo payloads from the proxy
type PhotoSource interface {
	GetPhoto(ctx context.Context, query string, refresh bool) (*api.Photo, error)
	TrackDownload(ctx context.Context, downloadLocation string) error
}

// BlobCache stores image bytes on a best-effort basis
type BlobCache interface {
	Ensure(ctx context.Context, url string) bool
	Match(ctx context.Context, url string) ([]byte, bool, error)
}

// Notifier shows transient messages to the user
type Notifier interface {
	Info(key string)
	Error(key string)
}

// Result describes the outcome of one FetchAndUpdateImage call
type Result struct {
	Metadata Metadata
	// Skipped is set when a non-forced call was short-circuited because the server is presumed down
	Skipped bool
	// Shared is set when the call joined an acquisition already in flight
	Shared bool
}

// Controller owns the acquisition state: the theme query, the server
// availability flag and the in-flight guard.
type Controller struct {
	photos     PhotoSource
	blobs      BlobCache
	kv         dbinterfaces.KeyValueStore
	notifier   Notifier
	transition *Transition
	now        func() time.Time

	mu              sync.Mutex
	theme           string
	serverAvailable bool
	closed          bool

	// life is cancelled by Shutdown and bounds every acquisition
	life     context.Context
	stop     context.CancelFunc
	flight   singleflight.Group
	active   sync.WaitGroup
	tracking sync.WaitGroup
}

// NewController wires an acquisition controller. The server starts out presumed available.
func NewController(photos PhotoSource, blobs BlobCache, kv dbinterfaces.KeyValueStore, notifier Notifier, transition *Transition) *Controller {
	if transition == nil {
		transition = NewTransition(DefaultFadeDuration)
	}
	life, stop := context.WithCancel(context.Background())
	return &Controller{
		life:            life,
		stop:            stop,
		photos:          photos,
		blobs:           blobs,
		kv:              kv,
		notifier:        notifier,
		transition:      transition,
		now:             time.Now,
		theme:           DefaultThemeQuery,
		serverAvailable: true,
	}
}

// SetTheme sets the query used by the next acquisition
func (c *Controller) SetTheme(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if query == "" {
		query = DefaultThemeQuery
	}
	c.theme = query
}

// Theme returns the current query
func (c *Controller) Theme() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.theme
}

// ServerAvailable reports the circuit breaker state
func (c *Controller) ServerAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverAvailable
}

func (c *Controller) setServerAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serverAvailable = available
}

// Transition returns the background layers driver
func (c *Controller) Transition() *Transition {
	return c.transition
}

// FetchAndUpdateImage runs one acquisition cycle.
//
// A non-forced call returns a skipped result without touching the network while
// the server is presumed down. A call made while an acquisition of the same kind
// is in flight joins it and receives its result; a forced call never joins a
// non-forced one. Once started, an acquisition runs to completion even if ctx is
// cancelled; cancelling ctx only stops the wait. Shutdown cancels it.
func (c *Controller) FetchAndUpdateImage(ctx context.Context, force bool) (Result, error) {
	return c.fetch(ctx, force, true)
}

// flightKey separates acquisitions by refresh and notification mode, so a
// caller only ever shares a result produced under its own flags.
func flightKey(force, notify bool) string {
	return fmt.Sprintf("acquire:force=%t:notify=%t", force, notify)
}

func (c *Controller) fetch(ctx context.Context, force, notify bool) (Result, error) {
	if !force && !c.ServerAvailable() {
		slog.Debug("Server unavailable, skipping image update")
		return Result{Skipped: true}, nil
	}
	if !c.begin() {
		return Result{}, ErrClosed
	}

	ch := c.flight.DoChan(flightKey(force, notify), func() (any, error) {
		actx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		unlink := context.AfterFunc(c.life, cancel)
		defer unlink()
		return c.acquire(actx, force, notify)
	})

	// The relay keeps this call counted until the shared acquisition is
	// over, even when the caller stops waiting early.
	out := make(chan singleflight.Result, 1)
	go func() {
		defer c.active.Done()
		out <- <-ch
	}()

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-out:
		if res.Err != nil {
			return Result{Shared: res.Shared}, res.Err
		}
		return Result{Metadata: res.Val.(Metadata), Shared: res.Shared}, nil
	}
}

// begin counts one unit of background work unless the controller is shut down
func (c *Controller) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.active.Add(1)
	return true
}

func (c *Controller) acquire(ctx context.Context, force, notify bool) (Metadata, error) {
	query := c.Theme()
	slog.Debug("Fetching new image", "query", query, "force", force)

	photo, err := c.photos.GetPhoto(ctx, query, force)
	if err != nil {
		return Metadata{}, c.fail(err, notify)
	}

	c.blobs.Ensure(ctx, photo.URLs.Full)

	if loc := photo.Links.DownloadLocation; loc != "" {
		c.track(ctx, loc)
	}

	m := FromPhoto(photo, c.now())
	if err := SaveMetadata(ctx, c.kv, m); err != nil {
		return Metadata{}, c.fail(err, notify)
	}

	c.transition.Show(m.URL)
	c.setServerAvailable(true)

	slog.Info("New image applied", "url", m.URL, "author", m.AuthorName)
	return m, nil
}

// fail flips the circuit breaker and raises one notification
func (c *Controller) fail(err error, notify bool) error {
	if c.life.Err() != nil {
		slog.Debug("Image acquisition abandoned on shutdown", "error", err)
		return err
	}
	c.setServerAvailable(false)
	slog.Error("Image acquisition failed", "error", err)
	if notify && c.notifier != nil {
		c.notifier.Error(FailureMessage(err))
	}
	return err
}

// track reports the download in the background; failures are only logged
func (c *Controller) track(ctx context.Context, downloadLocation string) {
	c.tracking.Add(1)
	go func() {
		defer c.tracking.Done()

		ctx, cancel := context.WithTimeout(ctx, trackingTimeout)
		defer cancel()

		if err := c.photos.TrackDownload(ctx, downloadLocation); err != nil {
			slog.Warn("Failed to call download endpoint", "error", err)
			return
		}
		slog.Debug("Download endpoint called for tracking")
	}()
}

// Wait blocks until background download tracking calls have finished
func (c *Controller) Wait() {
	c.tracking.Wait()
}

// Shutdown refuses new acquisitions, cancels the ones in flight and waits for
// them, the startup fetch and download tracking to finish. The key-value store
// is not touched once Shutdown returns.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.stop()
	c.active.Wait()
	c.tracking.Wait()
}

// Current returns the persisted metadata, if any
func (c *Controller) Current(ctx context.Context) (Metadata, bool) {
	m, ok, err := LoadMetadata(ctx, c.kv)
	if err != nil && !errs.IsPartialWrite(err) {
		slog.Warn("Failed to load image metadata", "error", err)
		return Metadata{}, false
	}
	return m, ok
}

// FailureMessage picks the message key shown for an acquisition error
func FailureMessage(err error) string {
	switch {
	case errs.IsNetwork(err):
		return MsgNetworkError
	case errs.IsUpstream(err):
		return MsgServerError
	case errs.IsMalformed(err):
		return MsgServiceError
	default:
		return MsgFailedToLoadImage
	}
}
