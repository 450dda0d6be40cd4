package mcpserver

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/erraggy/wmtools/internal/config"
)

// serverConfig holds all configurable MCP server defaults.
// Loaded once at startup from environment variables via loadConfig().
type serverConfig struct {
	// App carries the check thresholds, title suffix and depth warning shared
	// with the CLI.
	App *config.Config

	// Cache settings.
	CacheEnabled       bool
	CacheMaxSize       int
	CacheFileTTL       time.Duration
	CacheURLTTL        time.Duration
	CacheContentTTL    time.Duration
	CacheSweepInterval time.Duration

	// Input limits.
	MaxInlineSize   int64
	AllowPrivateIPs bool

	// Listing defaults.
	ListLimit int
	MaxLimit  int
}

// cfg is the active server configuration, initialized at package load time.
var cfg = loadConfig()

// loadConfig reads configuration from WMTOOLS_* environment variables.
// Invalid values log a warning and fall back to the hardcoded default.
func loadConfig() *serverConfig {
	app := config.Default()
	app.ApplyEnv()
	if err := app.Validate(); err != nil {
		slog.Warn("invalid configuration from environment, using defaults", "error", err)
		app = config.Default()
	}
	return &serverConfig{
		App:                app,
		CacheEnabled:       envBool("WMTOOLS_CACHE_ENABLED", true),
		CacheMaxSize:       envInt("WMTOOLS_CACHE_MAX_SIZE", 10),
		CacheFileTTL:       envDuration("WMTOOLS_CACHE_FILE_TTL", 15*time.Minute),
		CacheURLTTL:        envDuration("WMTOOLS_CACHE_URL_TTL", 5*time.Minute),
		CacheContentTTL:    envDuration("WMTOOLS_CACHE_CONTENT_TTL", 15*time.Minute),
		CacheSweepInterval: envDuration("WMTOOLS_CACHE_SWEEP_INTERVAL", 60*time.Second),
		MaxInlineSize:      int64(envInt("WMTOOLS_MAX_INLINE_SIZE", 10*1024*1024)),
		AllowPrivateIPs:    envBool("WMTOOLS_ALLOW_PRIVATE_IPS", false),
		ListLimit:          envInt("WMTOOLS_LIST_LIMIT", 100),
		MaxLimit:           envInt("WMTOOLS_MAX_LIMIT", 1000),
	}
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid bool env var, using default", "key", key, "value", v, "default", fallback) //nolint:gosec // G706: values are structured log fields, not format strings
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("invalid int env var, using default", "key", key, "value", v, "default", fallback) //nolint:gosec // G706: values are structured log fields, not format strings
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", fallback) //nolint:gosec // G706: values are structured log fields, not format strings
		return fallback
	}
	return d
}
