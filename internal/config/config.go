package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"fuelcoach-go/internal/constants"
)

// ErrNoOrigin is returned when the base URL is same-origin but no origin is known.
var ErrNoOrigin = errors.New("same-origin API requested but no origin configured")

// Config is the resolved runtime configuration.
type Config struct {
	API       APIConfig
	Storage   StorageConfig
	Offline   OfflineConfig
	Security  SecurityConfig
	Telemetry TelemetryConfig
}

// APIConfig describes how to reach the remote API.
type APIConfig struct {
	// BaseURL is the absolute API root, e.g. http://localhost:8000/api/v1.
	BaseURL string
	// SameOrigin is set when the base URL was explicitly configured as empty:
	// requests go to Origin + PathPrefix (reverse-proxy deployments).
	SameOrigin bool
	Origin     string
	PathPrefix string

	RefreshPath     string
	UserAgent       string
	ProxyURL        string
	CoalesceRefresh bool
}

// StorageConfig selects where credentials and the offline queue persist.
type StorageConfig struct {
	Backend       string // memory | file | sqlite | redis
	BaseDir       string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// OfflineConfig bounds and paces the offline mutation queue.
type OfflineConfig struct {
	Capacity    int
	ReplayRPS   float64
	ReplayBurst int
}

type SecurityConfig struct {
	Debug   bool
	LogFile string
}

type TelemetryConfig struct {
	MetricsEnabled bool
	TracingEnabled bool
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:     constants.DefaultBaseURL,
			PathPrefix:  "/api/v1",
			RefreshPath: constants.RefreshPath,
			UserAgent:   constants.DefaultUserAgent,
		},
		Storage: StorageConfig{
			Backend:     "sqlite",
			BaseDir:     defaultBaseDir(),
			RedisAddr:   "localhost:6379",
			RedisPrefix: "fuelcoach:",
		},
		Offline: OfflineConfig{
			Capacity:    constants.DefaultQueueCapacity,
			ReplayRPS:   constants.DefaultReplayRPS,
			ReplayBurst: constants.DefaultReplayBurst,
		},
		Telemetry: TelemetryConfig{MetricsEnabled: true},
	}
}

// ResolveBaseURL returns the absolute API root requests are issued against.
func (c *Config) ResolveBaseURL() (string, error) {
	if !c.API.SameOrigin {
		base := strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
		if base == "" {
			base = constants.DefaultBaseURL
		}
		if _, err := url.ParseRequestURI(base); err != nil {
			return "", fmt.Errorf("invalid api base url %q: %w", base, err)
		}
		return base, nil
	}
	origin := strings.TrimRight(strings.TrimSpace(c.API.Origin), "/")
	if origin == "" {
		return "", ErrNoOrigin
	}
	if _, err := url.ParseRequestURI(origin); err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	return origin + normalizePathPrefix(c.API.PathPrefix), nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "file", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Offline.Capacity <= 0 {
		return fmt.Errorf("offline capacity must be positive, got %d", c.Offline.Capacity)
	}
	if c.Offline.ReplayRPS < 0 {
		return fmt.Errorf("offline replay rps must not be negative")
	}
	if _, err := c.ResolveBaseURL(); err != nil && !errors.Is(err, ErrNoOrigin) {
		return err
	}
	return nil
}

// Clone returns a copy safe to hand to other goroutines.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
