// Package i18n looks up user-facing messages by (language, key).
package i18n

import (
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/tabskin/configs"
)

// Fallback is the language consulted when the requested one lacks a key
const Fallback = "en"

// Catalog holds one flat message table per language
type Catalog struct {
	tables  map[string]map[string]string
	matcher language.Matcher
	tags    []string
}

// Load reads every <lang>.yaml file in dir
func Load(fsys fs.FS, dir string) (*Catalog, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list locale files: %w", err)
	}

	tables := make(map[string]map[string]string, len(files))
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		var table map[string]string
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}

		lang := strings.TrimSuffix(path.Base(file), ".yaml")
		tables[lang] = table
	}

	if _, ok := tables[Fallback]; !ok {
		return nil, fmt.Errorf("locale %q is required", Fallback)
	}

	// The fallback goes first so the matcher defaults to it
	langs := slices.Sorted(maps.Keys(tables))
	langs = slices.DeleteFunc(langs, func(l string) bool { return l == Fallback })
	langs = slices.Insert(langs, 0, Fallback)

	tags := make([]language.Tag, len(langs))
	for i, l := range langs {
		tags[i] = language.Make(l)
	}

	return &Catalog{
		tables:  tables,
		matcher: language.NewMatcher(tags),
		tags:    langs,
	}, nil
}

// Default returns the catalog compiled into the binary
var Default = sync.OnceValue(func() *Catalog {
	catalog, err := Load(configs.EmbeddedConfigs, "locales")
	if err != nil {
		panic(fmt.Sprintf("embedded locales are broken: %v", err))
	}
	return catalog
})

// Message returns the text for key in lang, then in English, then "[Missing: key]"
func (c *Catalog) Message(lang, key string) string {
	if msg, ok := c.tables[c.Normalize(lang)][key]; ok {
		return msg
	}
	if msg, ok := c.tables[Fallback][key]; ok {
		return msg
	}
	return "[Missing: " + key + "]"
}

// Normalize maps a language tag such as "ru-RU" onto a supported language
func (c *Catalog) Normalize(lang string) string {
	if _, ok := c.tables[lang]; ok {
		return lang
	}

	tag, err := language.Parse(lang)
	if err != nil {
		return Fallback
	}

	_, index, confidence := c.matcher.Match(tag)
	if confidence == language.No {
		return Fallback
	}
	return c.tags[index]
}

// Languages lists the supported languages, fallback first
func (c *Catalog) Languages() []string {
	return slices.Clone(c.tags)
}

// Keys lists the message keys of lang in sorted order
func (c *Catalog) Keys(lang string) []string {
	return slices.Sorted(maps.Keys(c.tables[lang]))
}

// Message looks key up in the default catalog
func Message(lang, key string) string {
	return Default().Message(lang, key)
}
