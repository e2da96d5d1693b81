// Package config loads runtime configuration for the birthsync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the registry server
//	-d string   path to the local database file
//	-o string   registration office code
//	-i int      online status check interval (seconds)
//	-r int      retry ceiling for queued mutations
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "http://127.0.0.1:8080",
//	  "database_path": "birthsync.db",
//	  "office_code": "ACC",
//	  "online_check_interval": "30s",
//	  "probe_timeout": "3s",
//	  "max_sync_retries": 5,
//	  "cache_sweep_interval": "10m"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
