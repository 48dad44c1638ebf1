package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Pool      PoolConfig
	Scan      ScanConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls how each Rod browser process is launched.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// DefaultProxy is the proxy URL for all launched browsers.
	DefaultProxy string

	// ViewportWidth and ViewportHeight set the default page viewport.
	ViewportWidth  int // default: 1280
	ViewportHeight int // default: 800
}

// PoolConfig controls the browser worker pool.
type PoolConfig struct {
	// MaxWorkers is the maximum number of concurrent browser processes.
	MaxWorkers int // default: 3

	// IdleTimeout is how long a worker may sit unused before the
	// sweep evicts it.
	IdleTimeout time.Duration // default: 60s

	// SweepInterval is how often the idle sweep runs.
	SweepInterval time.Duration // default: 30s
}

// ScanConfig controls scan behavior.
type ScanConfig struct {
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 120s

	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 15s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// CacheConfig controls the scan response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	// Zero disables caching.
	MaxEntries int // default: 1000

	// TTL is how long a cached scan stays valid.
	TTL time.Duration // default: 5m
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("A11Y_HOST", "0.0.0.0"),
			Port: envIntOr("A11Y_PORT", 8080),
			Mode: envOr("A11Y_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:       envBoolOr("A11Y_HEADLESS", true),
			NoSandbox:      envBoolOr("A11Y_NO_SANDBOX", false),
			BrowserBin:     os.Getenv("A11Y_BROWSER_BIN"),
			DefaultProxy:   os.Getenv("A11Y_PROXY"),
			ViewportWidth:  envIntOr("A11Y_VIEWPORT_WIDTH", 1280),
			ViewportHeight: envIntOr("A11Y_VIEWPORT_HEIGHT", 800),
		},
		Pool: PoolConfig{
			MaxWorkers:    envIntOr("A11Y_MAX_WORKERS", 3),
			IdleTimeout:   envDurationOr("A11Y_IDLE_TIMEOUT", 60*time.Second),
			SweepInterval: envDurationOr("A11Y_SWEEP_INTERVAL", 30*time.Second),
		},
		Scan: ScanConfig{
			DefaultTimeout:    envDurationOr("A11Y_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:        envDurationOr("A11Y_MAX_TIMEOUT", 120*time.Second),
			NavigationTimeout: envDurationOr("A11Y_NAV_TIMEOUT", 15*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("A11Y_AUTH_ENABLED", true),
			APIKeys: envSliceOr("A11Y_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("A11Y_RATE_RPS", 5.0),
			Burst:             envIntOr("A11Y_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("A11Y_CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("A11Y_CACHE_TTL", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  envOr("A11Y_LOG_LEVEL", "info"),
			Format: envOr("A11Y_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
