package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Secondary SecondaryConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080 (PORT)
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 10

	// DefaultProxy is the proxy URL for all browser sessions.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls extraction behavior.
type ScraperConfig struct {
	// NavTimeout bounds page navigation per browser attempt.
	NavTimeout time.Duration // default: 30s

	// SelectorWaitTimeout bounds the wait for a domain profile's price
	// selector to appear. Soft-failing.
	SelectorWaitTimeout time.Duration // default: 10s

	// SettleTimeout bounds the wait for the network/DOM to quiet.
	SettleTimeout time.Duration // default: 15s

	// FetchTimeout bounds the static HTTP fetch.
	FetchTimeout time.Duration // default: 15s

	// OutboundRPS limits outbound static fetches across all requests.
	OutboundRPS float64 // default: 4
}

// SecondaryConfig controls the out-of-process extraction engine.
type SecondaryConfig struct {
	// Bin is the engine binary name or path. Resolved via PATH when not
	// absolute; a missing binary disables the strategy, it is not an error.
	Bin string // default: "prodex-engine"

	// Timeout bounds one engine invocation end to end.
	Timeout time.Duration // default: 30s
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	// TTL is the default lifetime of a cached result.
	TTL time.Duration // default: 6h (CACHE_TTL_MS)
}

// RateLimitConfig controls per-(domain, identifier) admission windows.
type RateLimitConfig struct {
	// Window is the fixed admission window per key.
	Window time.Duration // default: 5s (DOMAIN_MIN_INTERVAL_MS)
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
// CACHE_TTL_MS, DOMAIN_MIN_INTERVAL_MS and PORT keep their historical
// unprefixed names; everything else is PRODEX_-prefixed.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PRODEX_HOST", "0.0.0.0"),
			Port: envIntOr("PORT", 8080),
			Mode: envOr("PRODEX_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("PRODEX_HEADLESS", true),
			MaxPages:     envIntOr("PRODEX_MAX_PAGES", 10),
			DefaultProxy: os.Getenv("PRODEX_PROXY"),
			NoSandbox:    envBoolOr("PRODEX_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("PRODEX_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			NavTimeout:          envDurationOr("PRODEX_NAV_TIMEOUT", 30*time.Second),
			SelectorWaitTimeout: envDurationOr("PRODEX_SELECTOR_WAIT_TIMEOUT", 10*time.Second),
			SettleTimeout:       envDurationOr("PRODEX_SETTLE_TIMEOUT", 15*time.Second),
			FetchTimeout:        envDurationOr("PRODEX_FETCH_TIMEOUT", 15*time.Second),
			OutboundRPS:         envFloatOr("PRODEX_OUTBOUND_RPS", 4.0),
		},
		Secondary: SecondaryConfig{
			Bin:     envOr("PRODEX_SECONDARY_BIN", "prodex-engine"),
			Timeout: envDurationOr("PRODEX_SECONDARY_TIMEOUT", 30*time.Second),
		},
		Cache: CacheConfig{
			TTL: envMillisOr("CACHE_TTL_MS", 6*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Window: envMillisOr("DOMAIN_MIN_INTERVAL_MS", 5*time.Second),
		},
		Log: LogConfig{
			Level:  envOr("PRODEX_LOG_LEVEL", "info"),
			Format: envOr("PRODEX_LOG_FORMAT", "json"),
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

// envMillisOr reads a plain millisecond count, the historical format of
// CACHE_TTL_MS and DOMAIN_MIN_INTERVAL_MS.
func envMillisOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}
