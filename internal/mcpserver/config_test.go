package mcpserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestLoadConfig_Defaults tests the defaults with no environment set.
func TestLoadConfig_Defaults(t *testing.T) {
	c := loadConfig()
	assert.True(t, c.CacheEnabled)
	assert.Equal(t, 10, c.CacheMaxSize)
	assert.Equal(t, 15*time.Minute, c.CacheFileTTL)
	assert.Equal(t, 5*time.Minute, c.CacheURLTTL)
	assert.Equal(t, int64(10*1024*1024), c.MaxInlineSize)
	assert.False(t, c.AllowPrivateIPs)
	assert.Equal(t, 100, c.ListLimit)
	assert.Equal(t, 1000, c.MaxLimit)
	assert.Equal(t, 10000, c.App.RecordCountThreshold)
	assert.Equal(t, 15, c.App.LayerCountThreshold)
}

// TestLoadConfig_Env tests environment overrides.
func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("WMTOOLS_CACHE_ENABLED", "false")
	t.Setenv("WMTOOLS_CACHE_URL_TTL", "30s")
	t.Setenv("WMTOOLS_LIST_LIMIT", "25")
	t.Setenv("WMTOOLS_ALLOW_PRIVATE_IPS", "true")
	t.Setenv("WMTOOLS_RECORD_THRESHOLD", "500")

	c := loadConfig()
	assert.False(t, c.CacheEnabled)
	assert.Equal(t, 30*time.Second, c.CacheURLTTL)
	assert.Equal(t, 25, c.ListLimit)
	assert.True(t, c.AllowPrivateIPs)
	assert.Equal(t, 500, c.App.RecordCountThreshold)
}

// TestLoadConfig_InvalidEnv tests that invalid values fall back to defaults.
func TestLoadConfig_InvalidEnv(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(t *testing.T, c *serverConfig)
	}{
		{"bad bool", "WMTOOLS_CACHE_ENABLED", "maybe", func(t *testing.T, c *serverConfig) { assert.True(t, c.CacheEnabled) }},
		{"bad int", "WMTOOLS_LIST_LIMIT", "lots", func(t *testing.T, c *serverConfig) { assert.Equal(t, 100, c.ListLimit) }},
		{"zero int", "WMTOOLS_MAX_LIMIT", "0", func(t *testing.T, c *serverConfig) { assert.Equal(t, 1000, c.MaxLimit) }},
		{"bad duration", "WMTOOLS_CACHE_FILE_TTL", "soon", func(t *testing.T, c *serverConfig) {
			assert.Equal(t, 15*time.Minute, c.CacheFileTTL)
		}},
		{"invalid app config", "WMTOOLS_PORTAL_URL", "portal.example.com", func(t *testing.T, c *serverConfig) {
			assert.Empty(t, c.App.Portal.URL)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			tt.check(t, loadConfig())
		})
	}
}
