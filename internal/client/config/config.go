package config

import "time"

// Config holds runtime settings for the tidesync CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the backend HTTP endpoint.
//   - DatabasePath: sqlite file backing the local store and mutation queue.
//   - SyncInterval: how often the orchestrator runs a push/pull cycle.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - Tables: the record tables kept in sync.
type Config struct {
	ServerEndpointAddr  string
	DatabasePath        string
	SyncInterval        time.Duration
	OnlineCheckInterval time.Duration
	Tables              []string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabasePath = "tidesync.db"
	c.SyncInterval = 30 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.Tables = []string{"notes", "tasks", "secrets"}
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
