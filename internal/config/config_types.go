package config

// FileConfig is the on-disk shape of the configuration (YAML or JSON).
type FileConfig struct {
	API       *APIFileConfig       `yaml:"api" json:"api"`
	Storage   *StorageFileConfig   `yaml:"storage" json:"storage"`
	Offline   *OfflineFileConfig   `yaml:"offline" json:"offline"`
	Debug     bool                 `yaml:"debug" json:"debug"`
	LogFile   string               `yaml:"log_file" json:"log_file"`
	Telemetry *TelemetryFileConfig `yaml:"telemetry" json:"telemetry"`
}

type APIFileConfig struct {
	// BaseURL is a pointer so an explicit `base_url: ""` (same origin) can be told apart from an absent key.
	BaseURL         *string `yaml:"base_url" json:"base_url"`
	Origin          string  `yaml:"origin" json:"origin"`
	PathPrefix      string  `yaml:"path_prefix" json:"path_prefix"`
	RefreshPath     string  `yaml:"refresh_path" json:"refresh_path"`
	UserAgent       string  `yaml:"user_agent" json:"user_agent"`
	ProxyURL        string  `yaml:"proxy_url" json:"proxy_url"`
	CoalesceRefresh bool    `yaml:"coalesce_refresh" json:"coalesce_refresh"`
}

type StorageFileConfig struct {
	Backend       string `yaml:"backend" json:"backend"`
	BaseDir       string `yaml:"base_dir" json:"base_dir"`
	SQLitePath    string `yaml:"sqlite_path" json:"sqlite_path"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix" json:"redis_prefix"`
}

type OfflineFileConfig struct {
	Capacity    int     `yaml:"capacity" json:"capacity"`
	ReplayRPS   float64 `yaml:"replay_rps" json:"replay_rps"`
	ReplayBurst int     `yaml:"replay_burst" json:"replay_burst"`
}

type TelemetryFileConfig struct {
	Metrics *bool `yaml:"metrics" json:"metrics"`
	Tracing bool  `yaml:"tracing" json:"tracing"`
}

// apply copies the set fields of fc onto cfg.
func (fc *FileConfig) apply(cfg *Config) {
	if fc == nil {
		return
	}
	if a := fc.API; a != nil {
		if a.BaseURL != nil {
			if *a.BaseURL == "" {
				cfg.API.SameOrigin = true
				cfg.API.BaseURL = ""
			} else {
				cfg.API.SameOrigin = false
				cfg.API.BaseURL = *a.BaseURL
			}
		}
		if a.Origin != "" {
			cfg.API.Origin = a.Origin
		}
		if a.PathPrefix != "" {
			cfg.API.PathPrefix = a.PathPrefix
		}
		if a.RefreshPath != "" {
			cfg.API.RefreshPath = a.RefreshPath
		}
		if a.UserAgent != "" {
			cfg.API.UserAgent = a.UserAgent
		}
		if a.ProxyURL != "" {
			cfg.API.ProxyURL = a.ProxyURL
		}
		cfg.API.CoalesceRefresh = a.CoalesceRefresh
	}
	if s := fc.Storage; s != nil {
		if s.Backend != "" {
			cfg.Storage.Backend = s.Backend
		}
		if s.BaseDir != "" {
			cfg.Storage.BaseDir = expandHome(s.BaseDir)
		}
		if s.SQLitePath != "" {
			cfg.Storage.SQLitePath = expandHome(s.SQLitePath)
		}
		if s.RedisAddr != "" {
			cfg.Storage.RedisAddr = s.RedisAddr
		}
		if s.RedisPassword != "" {
			cfg.Storage.RedisPassword = s.RedisPassword
		}
		if s.RedisDB != 0 {
			cfg.Storage.RedisDB = s.RedisDB
		}
		if s.RedisPrefix != "" {
			cfg.Storage.RedisPrefix = s.RedisPrefix
		}
	}
	if o := fc.Offline; o != nil {
		if o.Capacity != 0 {
			cfg.Offline.Capacity = o.Capacity
		}
		if o.ReplayRPS != 0 {
			cfg.Offline.ReplayRPS = o.ReplayRPS
		}
		if o.ReplayBurst != 0 {
			cfg.Offline.ReplayBurst = o.ReplayBurst
		}
	}
	cfg.Security.Debug = cfg.Security.Debug || fc.Debug
	if fc.LogFile != "" {
		cfg.Security.LogFile = expandHome(fc.LogFile)
	}
	if t := fc.Telemetry; t != nil {
		if t.Metrics != nil {
			cfg.Telemetry.MetricsEnabled = *t.Metrics
		}
		cfg.Telemetry.TracingEnabled = t.Tracing
	}
}
