// Package configs provides embedded configuration files for tabskin.
package configs

import "embed"

// EmbeddedConfigs exposes the default config and the translation tables.
//
//go:embed config.example.yaml locales/*.yaml
var EmbeddedConfigs embed.FS

// DefaultConfigFile is the embedded file holding built-in defaults
const DefaultConfigFile = "config.example.yaml"
