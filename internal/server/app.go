// Package server runs the winotpd daemon: the engine assembled by core, the
// background time synchronizer and the gRPC endpoint, until a signal or a
// fatal server error stops them.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/config"
	"github.com/xBounceIT/WinOTP-sub000/internal/core"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"

	gs "github.com/xBounceIT/WinOTP-sub000/internal/server/grpc"
)

// sessionKeySize is the length of the per-process session signing key.
const sessionKeySize = 32

type App struct {
	config *config.Config
	logger logging.Logger
	core   *core.Core
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger, opts ...core.Option) (*App, error) {

	cr, err := core.Open(ctx, c, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("engine init error: %w", err)
	}

	return &App{config: c, logger: logger, core: cr}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.core.Keeper, app.core.Sync, common.GenerateRandByteArray(sessionKeySize))

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", logging.Err(err))
		cancelFunc()
	}
}

// Run blocks until ctx is canceled, a termination signal arrives or the
// gRPC server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.core.Sync.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.core.Close(); err != nil {
		app.logger.Error(ctx, "closing store failed", logging.Err(err))
	}
	app.logger.Info(ctx, "Stopped")
}
