package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"winotp"}, args...)
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "winotp.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseJson_OverlaysPresentKeys(t *testing.T) {
	path := writeConfigFile(t, `{
		"store_backend": "sqlite",
		"sync_interval": "10m",
		"ntp_timeout": 500000000,
		"ntp_servers": ["time.google.com"]
	}`)
	withArgs(t, "-config", path)
	t.Setenv("WINOTP_CONFIG", "")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, 10*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.NTPTimeout)
	assert.Equal(t, []string{"time.google.com"}, cfg.NTPServers)
	assert.Equal(t, "winotp-data", cfg.DataDir)
	assert.Equal(t, "127.0.0.1:50061", cfg.GRPCAddr)
}

func TestParseJson_CommentsAndTrailingCommas(t *testing.T) {
	path := writeConfigFile(t, `{
		// nightly backups
		"s3_bucket": "vault", /* off-site */
		"s3_prefix": "laptop",
		"log_level": "debug",
	}`)
	withArgs(t, "-c", path)

	cfg := &Config{}
	parseJson(cfg)

	assert.Equal(t, "vault", cfg.S3Bucket)
	assert.Equal(t, "laptop", cfg.S3Prefix)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.BackupEnabled())
}

func TestParseJson_FromEnvironment(t *testing.T) {
	path := writeConfigFile(t, `{"data_dir": "/srv/winotp"}`)
	withArgs(t)
	t.Setenv("WINOTP_CONFIG", path)

	cfg := &Config{DataDir: "before"}
	parseJson(cfg)

	assert.Equal(t, "/srv/winotp", cfg.DataDir)
}

func TestParseJson_NoFileLeavesConfig(t *testing.T) {
	withArgs(t, "-d", "x")
	t.Setenv("WINOTP_CONFIG", "")

	cfg := &Config{DataDir: "keep", SyncInterval: 42 * time.Second}
	parseJson(cfg)

	assert.Equal(t, &Config{DataDir: "keep", SyncInterval: 42 * time.Second}, cfg)
}

func TestParseJson_Panics(t *testing.T) {
	t.Setenv("WINOTP_CONFIG", "")

	bad := writeConfigFile(t, `{ "sync_interval": "soon" }`)
	broken := writeConfigFile(t, `{ not json`)

	for name, path := range map[string]string{
		"bad duration": bad,
		"broken json":  broken,
		"missing file": filepath.Join(t.TempDir(), "absent.json"),
	} {
		t.Run(name, func(t *testing.T) {
			withArgs(t, "-c", path)
			assert.Panics(t, func() { parseJson(&Config{}) })
		})
	}
}
