package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lepinkainen/tabskin/configs"
	"github.com/lepinkainen/tabskin/pkg/filesystem"
	"github.com/lepinkainen/tabskin/pkg/urlutils"
)

// EnvPrefix prefixes environment overrides, e.g. TABSKIN_CLIENT_ENDPOINT
const EnvPrefix = "TABSKIN"

// Config holds the central application configuration
type Config struct {
	Client ClientConfig `mapstructure:"client"`
	Proxy  ProxyConfig  `mapstructure:"proxy"`
}

// ClientConfig configures the new-tab client
type ClientConfig struct {
	Endpoint         string        `mapstructure:"endpoint"`            // Photo proxy base URL
	DataDir          string        `mapstructure:"data_dir"`            // Profile directory, empty for the default
	ImageTTL         time.Duration `mapstructure:"image_ttl"`           // Age after which startup fetches a new image
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`     // Per-attempt timeout
	MaxRetries       int           `mapstructure:"max_retries"`         // Attempts per request
	RetryDelay       time.Duration `mapstructure:"retry_delay"`         // Linear backoff base
	CacheSizeLimitMB int           `mapstructure:"cache_size_limit_mb"` // Image cache budget
	FadeDuration     time.Duration `mapstructure:"fade_duration"`
	ToastDuration    time.Duration `mapstructure:"toast_duration"`
}

// ProxyConfig configures the photo proxy server
type ProxyConfig struct {
	Listen              string        `mapstructure:"listen"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
	CacheSize           int           `mapstructure:"cache_size"`          // Distinct queries kept
	RateLimitPerHour    int           `mapstructure:"rate_limit_per_hour"` // Per client IP
	UpstreamURL         string        `mapstructure:"upstream_url"`
	UpstreamRatePerHour int           `mapstructure:"upstream_rate_per_hour"`
}

// CacheSizeLimit returns the image cache budget in bytes
func (c ClientConfig) CacheSizeLimit() int64 {
	return int64(c.CacheSizeLimitMB) << 20
}

// LoadConfig loads the built-in defaults, then merges the file at path.
// An empty path looks for config.yaml in the current directory and then in
// the default data directory. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := configs.EmbeddedConfigs.ReadFile(configs.DefaultConfigFile)
	if err != nil {
		return nil, fmt.Errorf("error reading built-in config: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("error parsing built-in config: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path = resolvePath(path); path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.Client.DataDir == "" {
		dir, err := filesystem.DefaultDataDir()
		if err != nil {
			return nil, fmt.Errorf("error resolving data directory: %w", err)
		}
		config.Client.DataDir = dir
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// resolvePath returns the config file to merge, or "" when there is none
func resolvePath(path string) string {
	if path == "" {
		path = "config.yaml"
	}
	if filepath.IsAbs(path) {
		return path
	}

	// First try the current working directory, then the data directory
	if _, err := os.Stat(path); err == nil {
		return path
	}
	if dir, err := filesystem.DefaultDataDir(); err == nil {
		candidate := filepath.Join(dir, path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Validate rejects values the client cannot run with
func (c *Config) Validate() error {
	switch {
	case !urlutils.IsValidURL(c.Client.Endpoint):
		return fmt.Errorf("client.endpoint must be an absolute URL, got %q", c.Client.Endpoint)
	case !urlutils.IsValidURL(c.Proxy.UpstreamURL):
		return fmt.Errorf("proxy.upstream_url must be an absolute URL, got %q", c.Proxy.UpstreamURL)
	case c.Client.MaxRetries < 1:
		return fmt.Errorf("client.max_retries must be at least 1, got %d", c.Client.MaxRetries)
	case c.Client.RequestTimeout <= 0:
		return fmt.Errorf("client.request_timeout must be positive")
	case c.Client.CacheSizeLimitMB <= 0:
		return fmt.Errorf("client.cache_size_limit_mb must be positive")
	case c.Proxy.RateLimitPerHour <= 0:
		return fmt.Errorf("proxy.rate_limit_per_hour must be positive")
	case c.Proxy.CacheSize <= 0:
		return fmt.Errorf("proxy.cache_size must be positive")
	}
	return nil
}
