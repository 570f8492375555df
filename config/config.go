package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Target    TargetConfig
	Browser   BrowserConfig
	Run       RunConfig
	Timeouts  TimeoutConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// TargetConfig describes the dashboard under test.
type TargetConfig struct {
	BaseURL  string // default: "https://p2-admin-dash-qa.vercel.app/"
	Email    string // default: "test_admin@yopmail.com"
	Password string // default: "Tester@123456"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: value of CI

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// DefaultProxy is the proxy URL for all browser traffic.
	DefaultProxy string

	// Stealth injects the go-rod/stealth evasions into every page.
	Stealth bool // default: false

	// BlockedResourceTypes lists resource types to block.
	// default: ["Media", "Font"]
	BlockedResourceTypes []string

	// BlockTrackers drops requests to well-known analytics domains.
	BlockTrackers bool // default: true

	// ExtraHeaders are sent with every request, "Name: value" pairs.
	ExtraHeaders map[string]string

	// WindowWidth and WindowHeight size the viewport (Desktop Chrome).
	WindowWidth  int // default: 1280
	WindowHeight int // default: 720
}

// RunConfig controls a single scenario run.
type RunConfig struct {
	// Timeout bounds one attempt end to end.
	Timeout time.Duration // default: 60s

	// CI marks a CI environment; it turns on retries and headless mode.
	CI bool

	// Retries is the number of extra whole-run attempts after a failure.
	Retries int // default: 2 on CI, 0 otherwise

	// Strict makes every extraction group failure fatal.
	Strict bool // default: false

	// Preflight probes the base URL over plain HTTP before opening a page.
	Preflight bool // default: true

	// MaxConcurrentRuns caps runs started through the API.
	MaxConcurrentRuns int // default: 1
}

// TimeoutConfig holds the bounded waits used by the scenario.
type TimeoutConfig struct {
	Navigation  time.Duration // URL pattern match; default: 5s
	Landing     time.Duration // landing text indicators; default: 5s
	Row         time.Duration // first table row visibility; default: 2s
	Settle      time.Duration // upper bound for tooltip/text settling; default: 2s
	Action      time.Duration // single fill/click/hover; default: 10s
	NetworkIdle time.Duration // network idle after submit/navigation; default: 15s
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// Schedule is a cron spec for periodic runs in serve mode, e.g.
	// "@every 15m" or "0 */2 * * *". Empty disables scheduling.
	Schedule string
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
	RequestsPerSecond float64 // default: 1
	Burst             int     // default: 3
}

// WebhookConfig controls delivery of finished run reports.
type WebhookConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
//
// BASE_URL, TEST_EMAIL, TEST_PASSWORD, HEADLESS, TIMEOUT and CI keep the
// names used by the existing Playwright setup so the same .env works for both.
func Load() *Config {
	ci := envBoolOr("CI", false)

	retries := 0
	if ci {
		retries = 2
	}

	return &Config{
		Target: TargetConfig{
			BaseURL:  envOr("BASE_URL", "https://p2-admin-dash-qa.vercel.app/"),
			Email:    envOr("TEST_EMAIL", "test_admin@yopmail.com"),
			Password: envOr("TEST_PASSWORD", "Tester@123456"),
		},
		Browser: BrowserConfig{
			Headless:             envBoolOr("HEADLESS", ci),
			NoSandbox:            envBoolOr("DASHCHECK_NO_SANDBOX", false),
			BrowserBin:           os.Getenv("DASHCHECK_BROWSER_BIN"),
			DefaultProxy:         os.Getenv("DASHCHECK_PROXY"),
			Stealth:              envBoolOr("DASHCHECK_STEALTH", false),
			BlockedResourceTypes: envSliceOr("DASHCHECK_BLOCKED_RESOURCES", []string{"Media", "Font"}),
			BlockTrackers:        envBoolOr("DASHCHECK_BLOCK_TRACKERS", true),
			ExtraHeaders:         envHeadersOr("DASHCHECK_EXTRA_HEADERS", nil),
			WindowWidth:          envIntOr("DASHCHECK_WINDOW_WIDTH", 1280),
			WindowHeight:         envIntOr("DASHCHECK_WINDOW_HEIGHT", 720),
		},
		Run: RunConfig{
			Timeout:           envMillisOr("TIMEOUT", 60*time.Second),
			CI:                ci,
			Retries:           envIntOr("DASHCHECK_RETRIES", retries),
			Strict:            envBoolOr("DASHCHECK_STRICT", false),
			Preflight:         envBoolOr("DASHCHECK_PREFLIGHT", true),
			MaxConcurrentRuns: envIntOr("DASHCHECK_MAX_CONCURRENT_RUNS", 1),
		},
		Timeouts: TimeoutConfig{
			Navigation:  envDurationOr("DASHCHECK_NAV_TIMEOUT", 5*time.Second),
			Landing:     envDurationOr("DASHCHECK_LANDING_TIMEOUT", 5*time.Second),
			Row:         envDurationOr("DASHCHECK_ROW_TIMEOUT", 2*time.Second),
			Settle:      envDurationOr("DASHCHECK_SETTLE_TIMEOUT", 2*time.Second),
			Action:      envDurationOr("DASHCHECK_ACTION_TIMEOUT", 10*time.Second),
			NetworkIdle: envDurationOr("DASHCHECK_IDLE_TIMEOUT", 15*time.Second),
		},
		Server: ServerConfig{
			Host: envOr("DASHCHECK_HOST", "0.0.0.0"),
			Port: envIntOr("DASHCHECK_PORT", 8080),
			Mode: envOr("DASHCHECK_MODE", "release"),

			Schedule: os.Getenv("DASHCHECK_SCHEDULE"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("DASHCHECK_AUTH_ENABLED", true),
			APIKeys: envSliceOr("DASHCHECK_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("DASHCHECK_RATE_RPS", 1.0),
			Burst:             envIntOr("DASHCHECK_RATE_BURST", 3),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("DASHCHECK_WEBHOOK_URL"),
			Secret: os.Getenv("DASHCHECK_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("DASHCHECK_LOG_LEVEL", "info"),
			Format: envOr("DASHCHECK_LOG_FORMAT", "text"),
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

// envMillisOr accepts a bare integer as milliseconds ("60000") or a Go
// duration string ("1m").
func envMillisOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
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

// envHeadersOr parses "Name: value; Other: value" into a header map.
func envHeadersOr(key string, fallback map[string]string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	headers := make(map[string]string)
	for _, pair := range strings.Split(v, ";") {
		name, value, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		headers[name] = strings.TrimSpace(value)
	}
	if len(headers) == 0 {
		return fallback
	}
	return headers
}
