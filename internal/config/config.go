// Package config provides configuration loading for webfetchd.
//
// Configuration is read from WEBFETCHD_* environment variables with
// defaults applied first. Out-of-range numeric values are clamped to
// their documented bounds rather than rejected.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the complete webfetchd configuration.
type Config struct {
	// MaxBytes is the response body byte budget.
	MaxBytes int64 `koanf:"max_bytes"`

	// TimeoutMS bounds one fetch end to end, in milliseconds.
	TimeoutMS int `koanf:"timeout_ms"`

	// MaxRedirects is the redirect hop budget.
	MaxRedirects int `koanf:"max_redirects"`

	// RateLimitPerHost is the per-host request ceiling per minute.
	RateLimitPerHost int `koanf:"rate_limit_per_host"`

	// BlockPrivateIP rejects fetches resolving to private address space.
	BlockPrivateIP bool `koanf:"block_private_ip"`

	// AllowlistDomains, when non-empty, restricts fetches to these domains
	// and their subdomains. Comma separated in the environment.
	AllowlistDomains string `koanf:"allowlist_domains"`

	// RespectRobots consults robots.txt before fetching.
	RespectRobots bool `koanf:"respect_robots"`

	// UserAgent is sent on outbound requests and matched in robots.txt.
	UserAgent string `koanf:"user_agent"`

	// DefaultMaxTokens is the chunking budget when the caller gives none.
	DefaultMaxTokens int `koanf:"default_max_tokens"`

	// ChunkMarginRatio shrinks the chunk budget to absorb estimation error.
	ChunkMarginRatio float64 `koanf:"chunk_margin_ratio"`

	// CacheTTLS is the fetch cache and resource store TTL in seconds.
	CacheTTLS int `koanf:"cache_ttl_s"`

	// PDFEnabled toggles the PDF extractor.
	PDFEnabled bool `koanf:"pdf_enabled"`

	// HTTPAddr is the health and metrics listen address.
	HTTPAddr string `koanf:"http_addr"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is json or console.
	LogFormat string `koanf:"log_format"`
}

func defaults() *Config {
	return &Config{
		MaxBytes:         10 << 20,
		TimeoutMS:        30000,
		MaxRedirects:     5,
		RateLimitPerHost: 60,
		BlockPrivateIP:   true,
		RespectRobots:    true,
		UserAgent:        "webfetchd/1.0 (+https://github.com/fyrsmithlabs/webfetchd)",
		DefaultMaxTokens: 4000,
		ChunkMarginRatio: 0.10,
		CacheTTLS:        300,
		PDFEnabled:       true,
		HTTPAddr:         ":9190",
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// Validate clamps numeric settings to their bounds and rejects values with
// no sane fallback.
func (c *Config) Validate() error {
	c.MaxBytes = clampInt64(c.MaxBytes, 1<<10, 100<<20)
	c.TimeoutMS = clampInt(c.TimeoutMS, 1000, 300000)
	c.MaxRedirects = clampInt(c.MaxRedirects, 0, 20)
	c.RateLimitPerHost = clampInt(c.RateLimitPerHost, 1, 1000)
	if c.DefaultMaxTokens < 100 {
		c.DefaultMaxTokens = 100
	}
	if c.ChunkMarginRatio < 0 {
		c.ChunkMarginRatio = 0
	}
	if c.ChunkMarginRatio > 0.5 {
		c.ChunkMarginRatio = 0.5
	}
	if c.CacheTTLS < 1 {
		c.CacheTTLS = 1
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user agent must not be empty")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http addr must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q (must be json or console)", c.LogFormat)
	}
	return nil
}

// Timeout returns the fetch timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLS) * time.Second
}

// Allowlist returns the parsed allowlist domains, empty when unrestricted.
func (c *Config) Allowlist() []string {
	if strings.TrimSpace(c.AllowlistDomains) == "" {
		return nil
	}
	var out []string
	for _, d := range strings.Split(c.AllowlistDomains, ",") {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
