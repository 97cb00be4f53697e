// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables
// and config files.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access from
// multiple goroutines.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Registry  RegistryConfig  `koanf:"registry"`
	Broker    BrokerConfig    `koanf:"broker"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	GeoIP     GeoIPConfig     `koanf:"geoip"`
	Capture   CaptureConfig   `koanf:"capture"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST: Bind address (default: 0.0.0.0)
//   - HTTP_PORT: Listen port (default: 8080)
//   - HTTP_TIMEOUT: Read/write timeout (default: 30s)
//   - ENVIRONMENT: "development" or "production"
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// RegistryConfig bounds the in-memory session registry.
type RegistryConfig struct {
	// Capacity is the maximum number of retained sessions. When exceeded,
	// the oldest session is evicted.
	Capacity int `koanf:"capacity"`

	// RecentLimit is the maximum number of sessions returned in the stats
	// recent list.
	RecentLimit int `koanf:"recent_limit"`
}

// BrokerConfig tunes the notification broker feeding live monitors.
type BrokerConfig struct {
	// HeartbeatInterval is the keep-alive ping cadence for SSE and
	// WebSocket subscribers.
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`

	// SubscriberBuffer is the per-subscriber outbound channel depth.
	// A subscriber whose buffer is full is evicted rather than blocking
	// the publish path.
	SubscriberBuffer int `koanf:"subscriber_buffer"`
}

// TelemetryConfig bounds telemetry ingestion.
type TelemetryConfig struct {
	// MaxBodyBytes caps the request body for telemetry submissions.
	// Frames are base64 JPEG payloads so this must be generous.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// GeoIPConfig controls the ip-api.com enrichment lookup.
//
// Environment Variables:
//   - GEOIP_ENABLED: Enable lookup enrichment (default: true)
//   - GEOIP_ENDPOINT: Lookup endpoint base URL
//   - GEOIP_TIMEOUT: Per-lookup deadline (default: 3s)
//   - GEOIP_CACHE_TTL: Cache entry lifetime (default: 1h)
//   - GEOIP_RATE_LIMIT: Lookups allowed per minute (default: 45, the
//     ip-api.com free tier limit)
type GeoIPConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Endpoint     string        `koanf:"endpoint"`
	Timeout      time.Duration `koanf:"timeout"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	RatePerMin   int           `koanf:"rate_per_min"`
	CacheMaxSize int           `koanf:"cache_max_size"`
}

// CaptureConfig tunes the continuous capture agent.
type CaptureConfig struct {
	// ServerURL is the Flytrap server the agent submits to.
	ServerURL string `koanf:"server_url"`

	// TickInterval is the capture loop cadence.
	TickInterval time.Duration `koanf:"tick_interval"`

	// LocationCacheTTL bounds reuse of the last position fix between
	// capture cycles.
	LocationCacheTTL time.Duration `koanf:"location_cache_ttl"`

	// LocationTimeout is the deadline for a fresh position fix.
	LocationTimeout time.Duration `koanf:"location_timeout"`

	// SubmitTimeout is the deadline for one telemetry POST.
	SubmitTimeout time.Duration `koanf:"submit_timeout"`
}

// SecurityConfig holds monitor authentication and abuse controls.
//
// Environment Variables:
//   - AUTH_ENABLED: Require a token for monitor endpoints (default: false)
//   - JWT_SECRET: HMAC secret for monitor tokens (required when auth enabled)
//   - ADMIN_USERNAME / ADMIN_PASSWORD_HASH: Monitor login credential
//     (bcrypt hash)
//   - RATE_LIMIT_REQUESTS / RATE_LIMIT_WINDOW: Per-IP submission rate limit
//   - CORS_ORIGINS: Comma-separated allowed origins
type SecurityConfig struct {
	AuthEnabled       bool          `koanf:"auth_enabled"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPasswordHash string        `koanf:"admin_password_hash"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// ListenAddr returns the host:port address for the HTTP listener.
func (s ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate checks the configuration for invalid or inconsistent values.
// It is called by LoadWithKoanf after all layers are merged.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}

	if c.Registry.Capacity < 1 {
		return fmt.Errorf("registry.capacity must be at least 1, got %d", c.Registry.Capacity)
	}
	if c.Registry.RecentLimit < 0 {
		return fmt.Errorf("registry.recent_limit must not be negative, got %d", c.Registry.RecentLimit)
	}
	if c.Registry.RecentLimit > c.Registry.Capacity {
		return fmt.Errorf("registry.recent_limit %d exceeds registry.capacity %d",
			c.Registry.RecentLimit, c.Registry.Capacity)
	}

	if c.Broker.HeartbeatInterval < time.Second {
		return fmt.Errorf("broker.heartbeat_interval must be at least 1s, got %v", c.Broker.HeartbeatInterval)
	}
	if c.Broker.SubscriberBuffer < 1 {
		return fmt.Errorf("broker.subscriber_buffer must be at least 1, got %d", c.Broker.SubscriberBuffer)
	}

	if c.Telemetry.MaxBodyBytes < 1024 {
		return fmt.Errorf("telemetry.max_body_bytes must be at least 1024, got %d", c.Telemetry.MaxBodyBytes)
	}

	if c.GeoIP.Enabled {
		if c.GeoIP.Endpoint == "" {
			return fmt.Errorf("geoip.endpoint is required when geoip is enabled")
		}
		if c.GeoIP.Timeout <= 0 {
			return fmt.Errorf("geoip.timeout must be positive, got %v", c.GeoIP.Timeout)
		}
		if c.GeoIP.RatePerMin < 1 {
			return fmt.Errorf("geoip.rate_per_min must be at least 1, got %d", c.GeoIP.RatePerMin)
		}
	}

	if c.Capture.TickInterval <= 0 {
		return fmt.Errorf("capture.tick_interval must be positive, got %v", c.Capture.TickInterval)
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateSecurity() error {
	s := &c.Security

	if s.AuthEnabled {
		if len(s.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters when auth is enabled")
		}
		if s.AdminUsername == "" || s.AdminPasswordHash == "" {
			return fmt.Errorf("security.admin_username and security.admin_password_hash are required when auth is enabled")
		}
		if !strings.HasPrefix(s.AdminPasswordHash, "$2") {
			return fmt.Errorf("security.admin_password_hash must be a bcrypt hash")
		}
	}

	if !s.RateLimitDisabled {
		if s.RateLimitReqs < 1 {
			return fmt.Errorf("security.rate_limit_reqs must be at least 1, got %d", s.RateLimitReqs)
		}
		if s.RateLimitWindow <= 0 {
			return fmt.Errorf("security.rate_limit_window must be positive, got %v", s.RateLimitWindow)
		}
	}

	// Wildcard origins with credentials is rejected by browsers; require
	// explicit origins in production.
	if c.IsProduction() {
		for _, origin := range s.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("security.cors_origins must not contain \"*\" in production")
			}
		}
	}

	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}
