package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(10<<20), cfg.MaxBytes)
	assert.Equal(t, 30000, cfg.TimeoutMS)
	assert.Equal(t, 5, cfg.MaxRedirects)
	assert.Equal(t, 60, cfg.RateLimitPerHost)
	assert.True(t, cfg.BlockPrivateIP)
	assert.True(t, cfg.RespectRobots)
	assert.Equal(t, 4000, cfg.DefaultMaxTokens)
	assert.InDelta(t, 0.10, cfg.ChunkMarginRatio, 0.0001)
	assert.Equal(t, 300, cfg.CacheTTLS)
	assert.True(t, cfg.PDFEnabled)
	assert.Equal(t, ":9190", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Contains(t, cfg.UserAgent, "webfetchd/")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WEBFETCHD_MAX_BYTES", "2048")
	t.Setenv("WEBFETCHD_TIMEOUT_MS", "5000")
	t.Setenv("WEBFETCHD_BLOCK_PRIVATE_IP", "false")
	t.Setenv("WEBFETCHD_ALLOWLIST_DOMAINS", "Example.com, docs.example.org")
	t.Setenv("WEBFETCHD_LOG_LEVEL", "debug")
	t.Setenv("WEBFETCHD_LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(2048), cfg.MaxBytes)
	assert.Equal(t, 5000, cfg.TimeoutMS)
	assert.False(t, cfg.BlockPrivateIP)
	assert.Equal(t, []string{"example.com", "docs.example.org"}, cfg.Allowlist())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadInvalidLogLevel(t *testing.T) {
	t.Setenv("WEBFETCHD_LOG_LEVEL", "verbose")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateClamps(t *testing.T) {
	cfg := defaults()
	cfg.MaxBytes = 1
	cfg.TimeoutMS = 10
	cfg.MaxRedirects = 99
	cfg.RateLimitPerHost = 0
	cfg.DefaultMaxTokens = 7
	cfg.ChunkMarginRatio = 0.9
	cfg.CacheTTLS = -5

	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(1<<10), cfg.MaxBytes)
	assert.Equal(t, 1000, cfg.TimeoutMS)
	assert.Equal(t, 20, cfg.MaxRedirects)
	assert.Equal(t, 1, cfg.RateLimitPerHost)
	assert.Equal(t, 100, cfg.DefaultMaxTokens)
	assert.Equal(t, 0.5, cfg.ChunkMarginRatio)
	assert.Equal(t, 1, cfg.CacheTTLS)
}

func TestValidateRejects(t *testing.T) {
	cfg := defaults()
	cfg.UserAgent = ""
	assert.Error(t, cfg.Validate())

	cfg = defaults()
	cfg.HTTPAddr = ""
	assert.Error(t, cfg.Validate())

	cfg = defaults()
	cfg.LogFormat = "xml"
	assert.Error(t, cfg.Validate())
}

func TestDurationHelpers(t *testing.T) {
	cfg := defaults()
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
}

func TestAllowlistEmpty(t *testing.T) {
	cfg := defaults()
	assert.Nil(t, cfg.Allowlist())
	cfg.AllowlistDomains = " , "
	assert.Nil(t, cfg.Allowlist())
}
