// Package core assembles the engine from a Config: the store backend, the
// auth manager, the time synchronizer feeding the TOTP engine, the keeper
// and the optional S3 backup service. Both binaries start from Open.
package core

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/xBounceIT/WinOTP-sub000/internal/auth"
	"github.com/xBounceIT/WinOTP-sub000/internal/backup"
	"github.com/xBounceIT/WinOTP-sub000/internal/config"
	"github.com/xBounceIT/WinOTP-sub000/internal/filex"
	"github.com/xBounceIT/WinOTP-sub000/internal/keeper"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
	"github.com/xBounceIT/WinOTP-sub000/internal/store"
	"github.com/xBounceIT/WinOTP-sub000/internal/timesync"
	"github.com/xBounceIT/WinOTP-sub000/internal/totp"
)

// SQLiteFileName is the database file used by the sqlite backend.
const SQLiteFileName = "winotp.db"

type Core struct {
	Repo   store.Repository
	Auth   *auth.Manager
	Sync   *timesync.Synchronizer
	Engine *totp.Engine
	Keeper *keeper.Keeper
	// Backup is nil unless an S3 bucket is configured.
	Backup *backup.Service

	db *sql.DB
}

type options struct {
	authOpts []auth.Option
	syncOpts []timesync.Option
}

type Option func(*options)

// WithAuthOptions passes options through to auth.NewManager.
func WithAuthOptions(opts ...auth.Option) Option {
	return func(o *options) { o.authOpts = append(o.authOpts, opts...) }
}

// WithSyncOptions passes options through to timesync.NewSynchronizer, after
// the ones derived from the config.
func WithSyncOptions(opts ...timesync.Option) Option {
	return func(o *options) { o.syncOpts = append(o.syncOpts, opts...) }
}

// OpenRepository opens the configured store backend under the data
// directory, creating the directory if needed.
func OpenRepository(ctx context.Context, cfg *config.Config, logger logging.Logger) (store.Repository, *sql.DB, error) {
	if cfg.StoreBackend != "" && cfg.StoreBackend != config.BackendFile && cfg.StoreBackend != config.BackendSQLite {
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	dir, err := filex.EnsureDataDir(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.StoreBackend {
	case config.BackendSQLite:
		db, err := store.OpenSQLite(ctx, filepath.Join(dir, SQLiteFileName), logger)
		if err != nil {
			return nil, nil, err
		}
		return store.NewSQLiteRepository(db), db, nil
	default:
		return store.NewFileRepository(dir), nil, nil
	}
}

// Open builds every component. The synchronizer is created but not
// started; callers run Sync.Run in their own goroutine.
func Open(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...Option) (*Core, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	repo, db, err := OpenRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c := &Core{Repo: repo, db: db}

	c.Auth, err = auth.NewManager(ctx, repo, logger, o.authOpts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("load auth config: %w", err)
	}

	syncOpts := []timesync.Option{
		timesync.WithServers(cfg.NTPServers...),
		timesync.WithTimeout(cfg.NTPTimeout),
		timesync.WithInterval(cfg.SyncInterval),
	}
	c.Sync = timesync.NewSynchronizer(logger, append(syncOpts, o.syncOpts...)...)
	c.Engine = totp.NewEngine(c.Sync)

	c.Keeper, err = keeper.New(ctx, store.NewTokenStore(repo), c.Auth, c.Engine, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("open keeper: %w", err)
	}

	if cfg.BackupEnabled() {
		uploader := backup.NewS3Uploader(backup.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
		c.Backup = backup.NewService(repo, uploader, cfg.S3Prefix, logger)
	}

	logger.Info(ctx, "engine ready", "backend", cfg.StoreBackend, "protected", c.Keeper.Protected())
	return c, nil
}

// Close releases the database handle of the sqlite backend.
func (c *Core) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
