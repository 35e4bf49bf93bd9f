// Package toast keeps the transient notifications shown over the new-tab page.
package toast

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/lepinkainen/tabskin/pkg/i18n"
)

// DefaultDuration is how long a toast stays visible
const DefaultDuration = 4 * time.Second

// Level is the severity of a toast
type Level int

// Toast levels
const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

// Toast is one visible notification
type Toast struct {
	ID    uint64
	Level Level
	Key   string
	Text  string
	Shown time.Time
}

// Center queues toasts and dismisses each one after a fixed duration
type Center struct {
	duration time.Duration
	language func() string
	onChange func()

	mu     sync.Mutex
	nextID uint64
	items  []Toast
	timers map[uint64]*time.Timer
	closed bool
}

// NewCenter creates a toast center. language supplies the current interface
// language at the moment a toast is raised.
func NewCenter(duration time.Duration, language func() string) *Center {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if language == nil {
		language = func() string { return i18n.Fallback }
	}
	return &Center{
		duration: duration,
		language: language,
		timers:   make(map[uint64]*time.Timer),
	}
}

// OnChange registers fn to run after a toast is added or dismissed
func (c *Center) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Info raises an informational toast for a message key
func (c *Center) Info(key string) {
	c.add(LevelInfo, key)
}

// Error raises an error toast for a message key
func (c *Center) Error(key string) {
	c.add(LevelError, key)
}

func (c *Center) add(level Level, key string) {
	text := i18n.Message(c.language(), key)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.nextID++
	id := c.nextID
	c.items = append(c.items, Toast{
		ID:    id,
		Level: level,
		Key:   key,
		Text:  text,
		Shown: time.Now(),
	})
	c.timers[id] = time.AfterFunc(c.duration, func() { c.Dismiss(id) })
	onChange := c.onChange
	c.mu.Unlock()

	slog.Debug("Toast shown", "level", level, "key", key)
	if onChange != nil {
		onChange()
	}
}

// Dismiss removes a toast before its timer fires. Unknown ids are ignored.
func (c *Center) Dismiss(id uint64) {
	c.mu.Lock()
	i := slices.IndexFunc(c.items, func(t Toast) bool { return t.ID == id })
	if i < 0 {
		c.mu.Unlock()
		return
	}
	c.items = slices.Delete(c.items, i, i+1)
	if timer, ok := c.timers[id]; ok {
		timer.Stop()
		delete(c.timers, id)
	}
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}

// Active returns the visible toasts, oldest first
func (c *Center) Active() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Close stops every pending dismissal and drops visible toasts
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, timer := range c.timers {
		timer.Stop()
		delete(c.timers, id)
	}
	c.items = nil
	c.closed = true
}
