package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xBounceIT/WinOTP-sub000/internal/auth"
	"github.com/xBounceIT/WinOTP-sub000/internal/config"
	"github.com/xBounceIT/WinOTP-sub000/internal/cryptox"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
	"github.com/xBounceIT/WinOTP-sub000/internal/models"
	"github.com/xBounceIT/WinOTP-sub000/internal/store"
	"github.com/xBounceIT/WinOTP-sub000/internal/timesync"
)

var fastParams = cryptox.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = t.TempDir()
	cfg.StoreBackend = backend
	cfg.S3Bucket = ""
	return cfg
}

func open(t *testing.T, cfg *config.Config) *Core {
	t.Helper()
	c, err := Open(context.Background(), cfg, logging.NewNopLogger(),
		WithAuthOptions(auth.WithHashParams(fastParams)),
		WithSyncOptions(timesync.WithQueryFunc(func(context.Context, string, time.Duration) (time.Time, error) {
			return time.Now(), nil
		})))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpen_Backends(t *testing.T) {
	for _, backend := range []string{config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, backend)

			c := open(t, cfg)
			assert.Nil(t, c.Backup)
			assert.False(t, c.Keeper.Protected())

			id, err := c.Keeper.AddToken(ctx, models.Token{Issuer: "Example", Name: "alice", Secret: "JBSWY3DPEHPK3PXP"})
			require.NoError(t, err)

			data, err := c.Repo.Get(ctx, store.TokensKey)
			require.NoError(t, err)
			assert.Contains(t, string(data), id)
			require.NoError(t, c.Close())

			reopened := open(t, cfg)
			tokens, err := reopened.Keeper.ListTokens(ctx)
			require.NoError(t, err)
			require.Len(t, tokens, 1)
			assert.Equal(t, id, tokens[0].ID)
		})
	}
}

func TestOpen_SQLiteSetPINLeavesNoPlaintext(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendSQLite)
	const secret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

	c := open(t, cfg)
	_, err := c.Keeper.AddToken(ctx, models.Token{Issuer: "Example", Name: "bob", Secret: secret})
	require.NoError(t, err)
	require.NoError(t, c.Keeper.SetPIN(ctx, "1234"))

	repo, ok := c.Repo.(*store.SQLiteRepository)
	require.True(t, ok)

	current, err := repo.Get(ctx, store.TokensKey)
	require.NoError(t, err)
	assert.NotContains(t, string(current), secret)

	revs, err := repo.Revisions(ctx, store.TokensKey)
	require.NoError(t, err)
	for _, rev := range revs {
		assert.NotContains(t, string(rev), secret)
	}
	require.NoError(t, c.Close())

	raw, err := os.ReadFile(filepath.Join(cfg.DataDir, SQLiteFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), secret)
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := testConfig(t, "postgres")

	_, err := Open(context.Background(), cfg, logging.NewNopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}

func TestOpen_BackupEnabled(t *testing.T) {
	cfg := testConfig(t, config.BackendFile)
	cfg.S3Bucket = "my-bucket"

	c := open(t, cfg)
	assert.NotNil(t, c.Backup)
}

func TestOpen_SyncSettings(t *testing.T) {
	cfg := testConfig(t, config.BackendFile)
	cfg.SyncInterval = 10 * time.Minute

	c := open(t, cfg)
	st := c.Sync.Status()
	assert.Equal(t, 10*time.Minute, st.Interval)
	assert.False(t, st.Running)
}
