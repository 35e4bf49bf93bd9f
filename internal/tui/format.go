// Package tui renders the new-tab page in the terminal using Bubble Tea.
package tui

import (
	"fmt"
	"slices"

	"github.com/lepinkainen/tabskin/internal/settings"
	"github.com/lepinkainen/tabskin/internal/wallpaper"
)

// Translate looks up a message key in the current language
type Translate func(key string) string

// FormatAttribution renders the photographer credit line
// Example: "Photo by Ansel Adams on Unsplash"
func FormatAttribution(t Translate, m wallpaper.Metadata) string {
	author := m.AuthorName
	if author == "" {
		author = wallpaper.UnknownAuthor
	}
	return fmt.Sprintf("%s %s %s %s Unsplash", t("photo"), t("by"), author, t("on"))
}

// FormatTheme returns the localized name of a theme query. Unknown queries
// are shown as-is.
func FormatTheme(t Translate, query string) string {
	i := slices.IndexFunc(settings.Themes, func(th settings.Theme) bool { return th.Query == query })
	if i < 0 {
		return query
	}
	return t(settings.Themes[i].MessageKey)
}

// FormatAutoSwitch describes the auto-switch setting
func FormatAutoSwitch(s settings.UserSettings) string {
	if !s.AutoSwitchEnabled {
		return "off"
	}
	return fmt.Sprintf("every %d min", s.AutoSwitchIntervalMinutes)
}

// FormatLayers describes what the background shows, including a fade in progress
func FormatLayers(l wallpaper.Layers) string {
	if l.Base == "" && !l.Fading() {
		return "none"
	}
	if l.Fading() {
		if l.Base == "" {
			return "fading in " + l.Overlay
		}
		return l.Base + " → " + l.Overlay
	}
	return l.Base
}

// nextTimeFormat flips between the 24-hour and 12-hour clock
func nextTimeFormat(format string) string {
	if format == settings.TimeFormat12 {
		return settings.TimeFormat24
	}
	return settings.TimeFormat12
}

// nextLanguage cycles through the supported languages
func nextLanguage(lang string) string {
	i := slices.Index(settings.Languages, lang)
	return settings.Languages[(i+1)%len(settings.Languages)]
}
