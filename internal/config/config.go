// Package config loads wmtools settings from defaults, an optional YAML file
// and WMTOOLS_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/erraggy/wmtools/checks"
	"github.com/erraggy/wmtools/mutation"
	"github.com/erraggy/wmtools/walker"
	"github.com/erraggy/wmtools/wmerrors"
	"go.yaml.in/yaml/v4"
)

// Environment variable names.
const (
	EnvRecordThreshold = "WMTOOLS_RECORD_THRESHOLD"
	EnvLayerThreshold  = "WMTOOLS_LAYER_THRESHOLD"
	EnvDebug           = "WMTOOLS_DEBUG"
	EnvTitleSuffix     = "WMTOOLS_TITLE_SUFFIX"
	EnvDepthWarning    = "WMTOOLS_DEPTH_WARNING"
	EnvPortalURL       = "WMTOOLS_PORTAL_URL"
	EnvPortalToken     = "WMTOOLS_PORTAL_TOKEN"
	EnvPortalTimeout   = "WMTOOLS_PORTAL_TIMEOUT"
	EnvTracing         = "WMTOOLS_TRACING"
)

// DefaultTitleSuffix is appended to the title of saved copies.
const DefaultTitleSuffix = "_Copy"

// Config holds every tunable setting.
type Config struct {
	RecordCountThreshold int `yaml:"record_count_threshold"`
	LayerCountThreshold  int `yaml:"layer_count_threshold"`
	// Debug selects dry-run mode. It defaults to true so nothing is written
	// unless the caller opts in.
	Debug        bool          `yaml:"debug"`
	TitleSuffix  string        `yaml:"title_suffix"`
	DepthWarning int           `yaml:"depth_warning"`
	Portal       PortalConfig  `yaml:"portal"`
	Tracing      TracingConfig `yaml:"tracing"`
}

// PortalConfig locates the portal REST API.
type PortalConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// TracingConfig toggles span export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RecordCountThreshold: checks.DefaultRecordCountThreshold,
		LayerCountThreshold:  checks.DefaultLayerCountThreshold,
		Debug:                true,
		TitleSuffix:          DefaultTitleSuffix,
		DepthWarning:         walker.DefaultDepthWarning,
		Portal:               PortalConfig{Timeout: 30 * time.Second},
	}
}

// Load builds the configuration. An empty path skips the file; a missing
// file named explicitly is an error. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &wmerrors.ConfigError{Option: "config", Value: path, Message: "file not found"}
			}
			return nil, &wmerrors.ConfigError{Option: "config", Value: path, Cause: err}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &wmerrors.ConfigError{Option: "config", Value: path, Message: "invalid YAML", Cause: err}
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from WMTOOLS_* variables. Invalid values log a
// warning and keep the current setting.
func (c *Config) ApplyEnv() {
	c.RecordCountThreshold = envInt(EnvRecordThreshold, c.RecordCountThreshold)
	c.LayerCountThreshold = envInt(EnvLayerThreshold, c.LayerCountThreshold)
	c.Debug = envBool(EnvDebug, c.Debug)
	c.DepthWarning = envInt(EnvDepthWarning, c.DepthWarning)
	c.Tracing.Enabled = envBool(EnvTracing, c.Tracing.Enabled)
	if v := os.Getenv(EnvTitleSuffix); v != "" {
		c.TitleSuffix = v
	}
	if v := os.Getenv(EnvPortalURL); v != "" {
		c.Portal.URL = v
	}
	if v := os.Getenv(EnvPortalToken); v != "" {
		c.Portal.Token = v
	}
	c.Portal.Timeout = envDuration(EnvPortalTimeout, c.Portal.Timeout)
}

// Validate reports the first invalid setting as a *wmerrors.ConfigError.
func (c *Config) Validate() error {
	switch {
	case c.RecordCountThreshold <= 0:
		return &wmerrors.ConfigError{Option: "record_count_threshold", Value: c.RecordCountThreshold, Message: "must be positive"}
	case c.LayerCountThreshold <= 0:
		return &wmerrors.ConfigError{Option: "layer_count_threshold", Value: c.LayerCountThreshold, Message: "must be positive"}
	case c.DepthWarning <= 0:
		return &wmerrors.ConfigError{Option: "depth_warning", Value: c.DepthWarning, Message: "must be positive"}
	case c.TitleSuffix == "":
		return &wmerrors.ConfigError{Option: "title_suffix", Message: "must not be empty"}
	case c.Portal.Timeout < 0:
		return &wmerrors.ConfigError{Option: "portal.timeout", Value: c.Portal.Timeout, Message: "must not be negative"}
	}
	if c.Portal.URL != "" {
		u, err := url.Parse(c.Portal.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &wmerrors.ConfigError{Option: "portal.url", Value: c.Portal.URL, Message: "must be an absolute URL", Cause: err}
		}
	}
	return nil
}

// Mode maps the debug flag to a mutation mode.
func (c *Config) Mode() mutation.Mode {
	return mutation.ModeFor(c.Debug)
}

// CheckOptions returns the engine options the configuration implies.
func (c *Config) CheckOptions() []checks.Option {
	return []checks.Option{
		checks.WithRecordCountThreshold(c.RecordCountThreshold),
		checks.WithLayerCountThreshold(c.LayerCountThreshold),
		checks.WithDepthWarning(c.DepthWarning),
	}
}

// String renders the configuration with the token masked.
func (c *Config) String() string {
	cp := *c
	if cp.Portal.Token != "" {
		cp.Portal.Token = "********"
	}
	data, err := yaml.Marshal(&cp)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid bool env var, keeping current value", "key", key, "value", v, "current", fallback) //nolint:gosec // G706: values are structured log fields, not format strings
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
		slog.Warn("invalid int env var, keeping current value", "key", key, "value", v, "current", fallback) //nolint:gosec // G706: values are structured log fields, not format strings
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
		slog.Warn("invalid duration env var, keeping current value", "key", key, "value", v, "current", fallback) //nolint:gosec // G706: values are structured log fields, not format strings
		return fallback
	}
	return d
}
