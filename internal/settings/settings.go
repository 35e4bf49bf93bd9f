// Package settings persists the user's preferences as one JSON entry.
package settings

import (
	"encoding/json"
	"fmt"
	"slices"
)

// StorageKey is the key-value entry holding the encoded settings
const StorageKey = "userSettings"

// Time formats
const (
	TimeFormat24 = "24"
	TimeFormat12 = "12"
)

// Theme pairs a photo search term with its message key
type Theme struct {
	Query      string
	MessageKey string
}

// Themes are the wallpaper themes offered to the user, in display order
var Themes = []Theme{
	{Query: "wallpapers", MessageKey: "wallpapers"},
	{Query: "nature", MessageKey: "nature"},
	{Query: "render", MessageKey: "render3d"},
	{Query: "textures", MessageKey: "textures"},
	{Query: "space", MessageKey: "space"},
	{Query: "travel", MessageKey: "travel"},
	{Query: "film", MessageKey: "film"},
	{Query: "people", MessageKey: "people"},
	{Query: "architecture", MessageKey: "architecture"},
	{Query: "street", MessageKey: "streetPhotography"},
}

// Intervals are the offered auto-switch periods in minutes
var Intervals = []int{1, 15, 60, 360}

// Languages are the supported interface languages
var Languages = []string{"en", "ru"}

// UserSettings are the user's preferences
type UserSettings struct {
	Language                  string `json:"language" yaml:"language"`
	TimeFormat                string `json:"timeFormat" yaml:"timeFormat"`
	Theme                     string `json:"theme" yaml:"theme"`
	AutoSwitchEnabled         bool   `json:"autoSwitchEnabled" yaml:"autoSwitchEnabled"`
	AutoSwitchIntervalMinutes int    `json:"autoSwitchIntervalMinutes" yaml:"autoSwitchIntervalMinutes"`
	TransitionEnabled         bool   `json:"transitionEnabled" yaml:"transitionEnabled"`
}

// Defaults returns the settings used when nothing valid is stored
func Defaults() UserSettings {
	return UserSettings{
		Language:                  "en",
		TimeFormat:                TimeFormat24,
		Theme:                     "wallpapers",
		AutoSwitchEnabled:         false,
		AutoSwitchIntervalMinutes: 60,
		TransitionEnabled:         true,
	}
}

// Validate checks every field against its allowed values
func (s UserSettings) Validate() error {
	if !slices.Contains(Languages, s.Language) {
		return fmt.Errorf("unsupported language %q", s.Language)
	}
	if s.TimeFormat != TimeFormat24 && s.TimeFormat != TimeFormat12 {
		return fmt.Errorf("unsupported time format %q", s.TimeFormat)
	}
	if s.Theme == "" {
		return fmt.Errorf("theme must not be empty")
	}
	if s.AutoSwitchIntervalMinutes <= 0 {
		return fmt.Errorf("auto-switch interval must be positive, got %d", s.AutoSwitchIntervalMinutes)
	}
	return nil
}

// NextTheme returns the theme after current in display order, wrapping around
func NextTheme(current string) string {
	i := slices.IndexFunc(Themes, func(t Theme) bool { return t.Query == current })
	return Themes[(i+1)%len(Themes)].Query
}

// decode parses a stored entry. Any failure yields ok=false so callers fall back to defaults.
func decode(raw string) (UserSettings, bool) {
	var s UserSettings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return UserSettings{}, false
	}
	if s.Validate() != nil {
		return UserSettings{}, false
	}
	return s, true
}
