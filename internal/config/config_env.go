package config

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// envBinding maps one FUELCOACH_* variable onto the config.
type envBinding struct {
	key   string
	apply func(cfg *Config, raw string) error
}

var envBindings = []envBinding{
	{"ORIGIN", strField(func(c *Config) *string { return &c.API.Origin })},
	{"API_PATH_PREFIX", strField(func(c *Config) *string { return &c.API.PathPrefix })},
	{"PROXY_URL", strField(func(c *Config) *string { return &c.API.ProxyURL })},
	{"COALESCE_REFRESH", toggleField(func(c *Config) *bool { return &c.API.CoalesceRefresh })},

	{"STORAGE_BACKEND", func(c *Config, raw string) error {
		c.Storage.Backend = strings.ToLower(raw)
		return nil
	}},
	{"STORAGE_BASE_DIR", pathField(func(c *Config) *string { return &c.Storage.BaseDir })},
	{"SQLITE_PATH", pathField(func(c *Config) *string { return &c.Storage.SQLitePath })},
	{"REDIS_ADDR", strField(func(c *Config) *string { return &c.Storage.RedisAddr })},
	{"REDIS_PASSWORD", strField(func(c *Config) *string { return &c.Storage.RedisPassword })},
	{"REDIS_DB", intField(func(c *Config) *int { return &c.Storage.RedisDB })},
	{"REDIS_PREFIX", strField(func(c *Config) *string { return &c.Storage.RedisPrefix })},

	{"OFFLINE_CAPACITY", intField(func(c *Config) *int { return &c.Offline.Capacity })},
	{"REPLAY_RPS", floatField(func(c *Config) *float64 { return &c.Offline.ReplayRPS })},
	{"REPLAY_BURST", intField(func(c *Config) *int { return &c.Offline.ReplayBurst })},

	{"DEBUG", toggleField(func(c *Config) *bool { return &c.Security.Debug })},
	{"LOG_FILE", pathField(func(c *Config) *string { return &c.Security.LogFile })},
	{"METRICS", toggleField(func(c *Config) *bool { return &c.Telemetry.MetricsEnabled })},
	{"TRACING", toggleField(func(c *Config) *bool { return &c.Telemetry.TracingEnabled })},
}

// mergeEnv applies FUELCOACH_* overrides on top of cfg. Unparseable values
// are logged and leave the field untouched.
func mergeEnv(cfg *Config) {
	// An explicitly empty API_URL means "same origin as the serving host",
	// which is not the same as leaving it unset.
	if v, ok := lookupenv("API_URL"); ok {
		v = strings.TrimSpace(v)
		cfg.API.SameOrigin = v == ""
		cfg.API.BaseURL = v
	}
	for _, b := range envBindings {
		raw := strings.TrimSpace(getenv(b.key))
		if raw == "" {
			continue
		}
		if err := b.apply(cfg, raw); err != nil {
			log.WithError(err).WithField("env", envPrefix+b.key).Warn("ignoring invalid environment override")
		}
	}
}
