package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/aowusu/birthsync/internal/flagx"
	"github.com/aowusu/birthsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "30s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	DatabasePath        string         `json:"database_path"`
	OfficeCode          string         `json:"office_code"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	ProbeTimeout        timex.Duration `json:"probe_timeout"`
	MaxSyncRetries      int            `json:"max_sync_retries"`
	CacheSweepInterval  timex.Duration `json:"cache_sweep_interval"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Only fields present in the file override the current values. Read or
// unmarshal errors panic; configuration problems should stop startup.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.OfficeCode != "" {
		cfg.OfficeCode = jc.OfficeCode
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.ProbeTimeout.Duration > 0 {
		cfg.ProbeTimeout = time.Duration(jc.ProbeTimeout.Duration)
	}
	if jc.MaxSyncRetries > 0 {
		cfg.MaxSyncRetries = jc.MaxSyncRetries
	}
	if jc.CacheSweepInterval.Duration > 0 {
		cfg.CacheSweepInterval = time.Duration(jc.CacheSweepInterval.Duration)
	}
}
