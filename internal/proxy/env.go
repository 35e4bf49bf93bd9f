package proxy

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Env is the proxy's secret and deployment settings from the environment
type Env struct {
	AccessKey string
	Port      string
	CacheTTL  time.Duration
}

// LoadEnv loads .env files (missing files are fine) and reads UNSPLASH_KEY,
// PORT and CACHE_TTL (milliseconds). A missing access key is an error.
func LoadEnv(files ...string) (Env, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Env{}, fmt.Errorf("failed to load .env: %w", err)
	}

	env := Env{
		AccessKey: os.Getenv("UNSPLASH_KEY"),
		Port:      os.Getenv("PORT"),
	}
	if env.AccessKey == "" {
		return Env{}, fmt.Errorf("UNSPLASH_KEY is not set")
	}

	if raw := os.Getenv("CACHE_TTL"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms <= 0 {
			return Env{}, fmt.Errorf("CACHE_TTL must be a positive number of milliseconds, got %q", raw)
		}
		env.CacheTTL = time.Duration(ms) * time.Millisecond
	}
	return env, nil
}

// ListenAddr applies PORT to the configured listen address
func (e Env) ListenAddr(configured string) string {
	if e.Port == "" {
		return configured
	}
	host, _, err := net.SplitHostPort(configured)
	if err != nil {
		host = ""
	}
	return net.JoinHostPort(host, e.Port)
}
