package config

import (
	"encoding/json"
	"os"

	"github.com/tidwall/jsonc"
	"github.com/xBounceIT/WinOTP-sub000/internal/flagx"
	"github.com/xBounceIT/WinOTP-sub000/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// Interval fields use timex.Duration, so both "300s" and integer nanoseconds
// are accepted. The file may contain // and /* */ comments and trailing commas.
type JsonConfig struct {
	DataDir        string         `json:"data_dir"`
	StoreBackend   string         `json:"store_backend"`
	NTPServers     []string       `json:"ntp_servers"`
	NTPTimeout     timex.Duration `json:"ntp_timeout"`
	SyncInterval   timex.Duration `json:"sync_interval"`
	GRPCAddr       string         `json:"grpc_addr"`
	LogLevel       string         `json:"log_level"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
	S3AccessKey    string         `json:"s3_access_key"`
	S3SecretKey    string         `json:"s3_secret_key"`
	S3Prefix       string         `json:"s3_prefix"`
}

// parseJson loads configuration values from the file named by the -c or
// -config flag. Without the flag nothing is loaded. Only keys present in the
// file override the current values. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(jsonc.ToJSON(file), c)
	if err != nil {
		panic(err)
	}

	setString(&config.DataDir, c.DataDir)
	setString(&config.StoreBackend, c.StoreBackend)
	if len(c.NTPServers) > 0 {
		config.NTPServers = c.NTPServers
	}
	if c.NTPTimeout.Duration > 0 {
		config.NTPTimeout = c.NTPTimeout.Duration
	}
	if c.SyncInterval.Duration > 0 {
		config.SyncInterval = c.SyncInterval.Duration
	}
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Prefix, c.S3Prefix)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
