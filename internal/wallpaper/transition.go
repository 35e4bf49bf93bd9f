package wallpaper

import (
	"sync"
	"time"
)

// DefaultFadeDuration is how long the overlay layer stays before it becomes the base
const DefaultFadeDuration = 800 * time.Millisecond

// Layers is a snapshot of the two background layers
type Layers struct {
	Base    string
	Overlay string
}

// Fading reports whether an overlay is still on screen
func (l Layers) Fading() bool {
	return l.Overlay != ""
}

// Transition swaps the background through a temporary overlay layer.
// The overlay is never dropped before the fade duration has elapsed.
type Transition struct {
	fade time.Duration

	mu       sync.Mutex
	enabled  bool
	layers   Layers
	timer    *time.Timer
	gen      uint64
	onChange func(Layers)
}

// NewTransition creates a transition with the given fade duration
func NewTransition(fade time.Duration) *Transition {
	return &Transition{fade: fade, enabled: true}
}

// SetEnabled turns the fade on or off. When off, Show commits immediately.
func (t *Transition) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// OnChange registers fn to receive every layer change
func (t *Transition) OnChange(fn func(Layers)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Show puts src on screen. A fade already in progress is committed first so the
// newest image always ends up as the base.
func (t *Transition) Show(src string) {
	t.mu.Lock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
		t.layers.Base = t.layers.Overlay
	}
	t.gen++

	if !t.enabled || t.fade <= 0 {
		t.layers = Layers{Base: src}
	} else {
		t.layers.Overlay = src
		gen := t.gen
		t.timer = time.AfterFunc(t.fade, func() { t.commit(gen) })
	}

	t.notifyLocked()
}

// SetBase paints src directly, without a fade. Used for the startup paint.
func (t *Transition) SetBase(src string) {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	t.layers = Layers{Base: src}
	t.notifyLocked()
}

func (t *Transition) commit(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.layers = Layers{Base: t.layers.Overlay}
	t.timer = nil
	t.notifyLocked()
}

// notifyLocked releases t.mu before calling the observer
func (t *Transition) notifyLocked() {
	layers := t.layers
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(layers)
	}
}

// Layers returns the current layers
func (t *Transition) Layers() Layers {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.layers
}

// Stop cancels a pending commit, leaving the overlay as the base
func (t *Transition) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
		t.layers = Layers{Base: t.layers.Overlay}
	}
	t.gen++
}
