package config

import "time"

// Store backends understood by the store package.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds runtime settings shared by the winotp CLI and the winotpd daemon.
//
// Fields:
//   - DataDir: directory holding tokens.json and auth_config.json (or winotp.db).
//   - StoreBackend: "file" (one JSON document per file) or "sqlite".
//   - NTPServers / NTPTimeout / SyncInterval: time synchronizer settings.
//   - GRPCAddr: bind address of the daemon's gRPC endpoint.
//   - LogLevel: debug, info, warn or error.
//   - S3*: optional off-site backup target; backups are disabled while S3Bucket is empty.
type Config struct {
	DataDir      string        `env:"DATA_DIR"`
	StoreBackend string        `env:"STORE_BACKEND"`
	NTPServers   []string      `env:"NTP_SERVERS" envSeparator:","`
	NTPTimeout   time.Duration `env:"NTP_TIMEOUT"`
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`
	GRPCAddr     string        `env:"GRPC_ADDR"`
	LogLevel     string        `env:"LOG_LEVEL"`

	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION"`
	S3BaseEndpoint string `env:"S3_BASE_ENDPOINT"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`
	S3Prefix       string `env:"S3_PREFIX"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "winotp-data"
	c.StoreBackend = BackendFile
	c.NTPServers = []string{"pool.ntp.org", "time.google.com", "time.windows.com", "time.nist.gov"}
	c.NTPTimeout = 1 * time.Second
	c.SyncInterval = 300 * time.Second
	c.GRPCAddr = "127.0.0.1:50061"
	c.LogLevel = "info"
	c.S3Region = "us-east-1"
	c.S3Prefix = "winotp"
}

// BackupEnabled reports whether an S3 bucket has been configured.
func (c *Config) BackupEnabled() bool {
	return c.S3Bucket != ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
