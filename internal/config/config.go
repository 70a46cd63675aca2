// Package config loads the server's configuration tree from environment
// variables, in the style of JamesPrial-mcp-oauth-2.1/internal/config:
// flat, typed, defaulted, validated once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the complete configuration tree named in spec.md §6.
type Config struct {
	Transport       TransportConfig
	ProtocolVersion ProtocolVersionConfig
	RateLimiting    RateLimitingConfig
	Logging         LoggingConfig
	ToolCache       ToolCacheConfig
}

// TransportConfig holds per-transport settings.
type TransportConfig struct {
	Stdio     StdioConfig
	SSE       SSEConfig
	WebSocket WebSocketConfig
}

// StdioConfig is transport.stdio.*.
type StdioConfig struct {
	Enabled bool
}

// SSEConfig is transport.sse.*.
type SSEConfig struct {
	Enabled        bool
	Addr           string
	Path           string
	RequireHTTPS   bool
	APIKey         string
	AllowedOrigins []string
	KeepAlive      time.Duration
}

// WebSocketConfig is transport.websocket.*.
type WebSocketConfig struct {
	Enabled        bool
	Addr           string
	Path           string
	SubProtocol    string
	AllowedOrigins []string
	MaxMessageSize int64
}

// ProtocolVersionConfig is protocolVersion.*.
type ProtocolVersionConfig struct {
	SupportedVersions        []string
	CurrentVersion           string
	AllowBackwardCompatibility bool
}

// RateLimitingConfig is rateLimiting.*.
type RateLimitingConfig struct {
	Default   BucketConfig
	PerMethod map[string]BucketConfig
}

// BucketConfig configures one token bucket.
type BucketConfig struct {
	Limit      int
	RefillRate float64 // tokens per second
}

// LoggingConfig controls the default observability/logging wiring.
type LoggingConfig struct {
	Level      string
	ShowTime   bool
}

// ToolCacheConfig controls CachedToolWrapper's backing store. Disabled by
// default; enabling it without a SQLitePath uses the in-memory store.
type ToolCacheConfig struct {
	Enabled    bool
	TTL        time.Duration
	MaxBytes   int
	SQLitePath string
}

// Load reads configuration from the environment, applying defaults and then
// validating. Every field except the RateLimiting table has an env var so
// operators can override exactly the bit of behaviour they need; rate limits
// keep their Default values.
func Load() (*Config, error) {
	cfg := Default()

	cfg.Transport.Stdio.Enabled = boolEnv("MCP_STDIO_ENABLED", cfg.Transport.Stdio.Enabled)

	cfg.Transport.SSE.Enabled = boolEnv("MCP_SSE_ENABLED", cfg.Transport.SSE.Enabled)
	cfg.Transport.SSE.Addr = stringEnv("MCP_SSE_ADDR", cfg.Transport.SSE.Addr)
	cfg.Transport.SSE.Path = stringEnv("MCP_SSE_PATH", cfg.Transport.SSE.Path)
	cfg.Transport.SSE.RequireHTTPS = boolEnv("MCP_SSE_REQUIRE_HTTPS", cfg.Transport.SSE.RequireHTTPS)
	cfg.Transport.SSE.APIKey = stringEnv("MCP_SSE_API_KEY", cfg.Transport.SSE.APIKey)
	cfg.Transport.SSE.AllowedOrigins = listEnv("MCP_SSE_ALLOWED_ORIGINS", cfg.Transport.SSE.AllowedOrigins)
	if d, err := durationEnv("MCP_SSE_KEEPALIVE", cfg.Transport.SSE.KeepAlive); err != nil {
		return nil, err
	} else {
		cfg.Transport.SSE.KeepAlive = d
	}

	cfg.Transport.WebSocket.Enabled = boolEnv("MCP_WS_ENABLED", cfg.Transport.WebSocket.Enabled)
	cfg.Transport.WebSocket.Addr = stringEnv("MCP_WS_ADDR", cfg.Transport.WebSocket.Addr)
	cfg.Transport.WebSocket.Path = stringEnv("MCP_WS_PATH", cfg.Transport.WebSocket.Path)
	cfg.Transport.WebSocket.SubProtocol = stringEnv("MCP_WS_SUBPROTOCOL", cfg.Transport.WebSocket.SubProtocol)
	cfg.Transport.WebSocket.AllowedOrigins = listEnv("MCP_WS_ALLOWED_ORIGINS", cfg.Transport.WebSocket.AllowedOrigins)
	if n, err := intEnv("MCP_WS_MAX_MESSAGE_SIZE", int(cfg.Transport.WebSocket.MaxMessageSize)); err != nil {
		return nil, err
	} else {
		cfg.Transport.WebSocket.MaxMessageSize = int64(n)
	}

	cfg.ProtocolVersion.CurrentVersion = stringEnv("MCP_PROTOCOL_VERSION", cfg.ProtocolVersion.CurrentVersion)
	cfg.ProtocolVersion.SupportedVersions = listEnv("MCP_PROTOCOL_SUPPORTED_VERSIONS", cfg.ProtocolVersion.SupportedVersions)
	cfg.ProtocolVersion.AllowBackwardCompatibility = boolEnv("MCP_PROTOCOL_ALLOW_BACKCOMPAT", cfg.ProtocolVersion.AllowBackwardCompatibility)

	cfg.Logging.Level = stringEnv("MCP_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.ShowTime = boolEnv("MCP_LOG_SHOW_TIME", cfg.Logging.ShowTime)

	cfg.ToolCache.Enabled = boolEnv("MCP_TOOLCACHE_ENABLED", cfg.ToolCache.Enabled)
	if d, err := durationEnv("MCP_TOOLCACHE_TTL", cfg.ToolCache.TTL); err != nil {
		return nil, err
	} else {
		cfg.ToolCache.TTL = d
	}
	if n, err := intEnv("MCP_TOOLCACHE_MAX_BYTES", cfg.ToolCache.MaxBytes); err != nil {
		return nil, err
	} else {
		cfg.ToolCache.MaxBytes = n
	}
	cfg.ToolCache.SQLitePath = stringEnv("MCP_TOOLCACHE_SQLITE_PATH", cfg.ToolCache.SQLitePath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a zero-config, stdio-only configuration with the demo
// catalogue's default rate limits (see spec.md §8 scenario 6: 2 req/s on
// tools/list).
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Stdio: StdioConfig{Enabled: true},
			SSE: SSEConfig{
				Enabled:   false,
				Addr:      ":8080",
				Path:      "/sse",
				KeepAlive: 15 * time.Second,
			},
			WebSocket: WebSocketConfig{
				Enabled:        false,
				Addr:           ":8081",
				Path:           "/ws",
				MaxMessageSize: 1 << 20,
			},
		},
		ProtocolVersion: ProtocolVersionConfig{
			SupportedVersions:          []string{"0.1.0"},
			CurrentVersion:             "0.1.0",
			AllowBackwardCompatibility: true,
		},
		RateLimiting: RateLimitingConfig{
			Default: BucketConfig{Limit: 60, RefillRate: 1},
			PerMethod: map[string]BucketConfig{
				"tools/list": {Limit: 2, RefillRate: 2},
			},
		},
		Logging: LoggingConfig{Level: "info"},
		ToolCache: ToolCacheConfig{
			Enabled:  false,
			TTL:      5 * time.Minute,
			MaxBytes: 64 * 1024,
		},
	}
}

// Validate checks cross-field invariants that Load's per-field parsing can't.
func (c *Config) Validate() error {
	if !c.Transport.Stdio.Enabled && !c.Transport.SSE.Enabled && !c.Transport.WebSocket.Enabled {
		return fmt.Errorf("config: at least one transport must be enabled")
	}
	if c.Transport.SSE.Enabled && c.Transport.SSE.Path == "" {
		return fmt.Errorf("config: transport.sse.path must be set when SSE is enabled")
	}
	if c.Transport.WebSocket.Enabled && c.Transport.WebSocket.Path == "" {
		return fmt.Errorf("config: transport.websocket.path must be set when websocket is enabled")
	}
	if len(c.ProtocolVersion.SupportedVersions) == 0 {
		return fmt.Errorf("config: protocolVersion.supportedVersions must be non-empty")
	}
	found := false
	for _, v := range c.ProtocolVersion.SupportedVersions {
		if v == c.ProtocolVersion.CurrentVersion {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config: protocolVersion.currentVersion %q must be one of supportedVersions", c.ProtocolVersion.CurrentVersion)
	}
	if c.RateLimiting.Default.Limit <= 0 || c.RateLimiting.Default.RefillRate <= 0 {
		return fmt.Errorf("config: rateLimiting.default must have positive limit and refillRate")
	}
	return nil
}

func stringEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func boolEnv(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func intEnv(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func listEnv(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
