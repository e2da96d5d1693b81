package config

import "time"

// Config holds runtime settings for the birthsync CLI.
//
// Units: interval and timeout fields are time.Duration values.
type Config struct {
	ServerEndpointAddr  string
	DatabasePath        string
	OfficeCode          string
	OnlineCheckInterval time.Duration
	ProbeTimeout        time.Duration
	MaxSyncRetries      int
	CacheSweepInterval  time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabasePath = "birthsync.db"
	c.OfficeCode = "HQ"
	c.OnlineCheckInterval = 30 * time.Second
	c.ProbeTimeout = 3 * time.Second
	c.MaxSyncRetries = 5
	c.CacheSweepInterval = 10 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
