package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_AllFlags(t *testing.T) {
	withArgs(t, "-d", "/tmp/otp", "-b", "sqlite", "-a", "127.0.0.1:7000",
		"-i", "120", "-n", "a.example, b.example,,", "-l", "debug")

	got := &Config{}
	require.NotPanics(t, func() { parseFlags(got) })

	want := &Config{
		DataDir:      "/tmp/otp",
		StoreBackend: BackendSQLite,
		GRPCAddr:     "127.0.0.1:7000",
		SyncInterval: 2 * time.Minute,
		NTPServers:   []string{"a.example", "b.example"},
		LogLevel:     "debug",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFlags_KeepsDefaultsForAbsentFlags(t *testing.T) {
	withArgs(t, "-c", "winotp.json", "list", "-l", "warn")

	cfg := &Config{}
	cfg.LoadDefaults()
	want := *cfg
	want.LogLevel = "warn"

	parseFlags(cfg)

	if diff := cmp.Diff(&want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFlags_BadInterval(t *testing.T) {
	withArgs(t, "-i", "often")
	assert.Panics(t, func() { parseFlags(&Config{}) })
}

func TestSplitServers(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitServers(" a ,b, "))
	assert.Empty(t, splitServers(""))
}
