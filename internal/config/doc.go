// Package config loads runtime configuration for the winotp CLI and the
// winotpd daemon.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A .env file in the working directory and WINOTP_* environment variables.
//  3. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string   data directory
//	-b string   store backend (file|sqlite)
//	-a string   gRPC bind address
//	-i int      time sync interval (seconds)
//	-n string   comma-separated NTP servers
//	-l string   log level
//
// # JSON schema
//
// Comments are allowed. Durations are strings like "300s" or integer
// nanoseconds:
//
//	{
//	  // relative to the working directory
//	  "data_dir": "winotp-data",
//	  "store_backend": "sqlite",
//	  "sync_interval": "10m",
//	  "ntp_servers": ["time.google.com", "pool.ntp.org"],
//	  "s3_bucket": "backups",
//	}
//
// Environment variables use the WINOTP_ prefix, e.g. WINOTP_DATA_DIR,
// WINOTP_SYNC_INTERVAL=10m, WINOTP_NTP_SERVERS=a,b.
package config
