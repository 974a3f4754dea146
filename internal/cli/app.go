package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/xBounceIT/WinOTP-sub000/internal/backup"
	"github.com/xBounceIT/WinOTP-sub000/internal/config"
	"github.com/xBounceIT/WinOTP-sub000/internal/core"
	"github.com/xBounceIT/WinOTP-sub000/internal/exportx"
	"github.com/xBounceIT/WinOTP-sub000/internal/keeper"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
	"github.com/xBounceIT/WinOTP-sub000/internal/timesync"
)

type App struct {
	config *config.Config
	logger logging.Logger
	core   *core.Core
	keeper *keeper.Keeper
	sync   *timesync.Synchronizer
	backup *backup.Service
	sealer exportx.Sealer
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger, opts ...core.Option) (*App, error) {

	cr, err := core.Open(ctx, c, logger, opts...)
	if err != nil {
		return nil, err
	}

	return &App{
		config: c,
		logger: logger,
		core:   cr,
		keeper: cr.Keeper,
		sync:   cr.Sync,
		backup: cr.Backup,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) isUnlocked() bool {
	return a.keeper.IsAuthenticated()
}

func (a *App) status() string {
	switch {
	case !a.keeper.Protected():
		return "open"
	case a.keeper.IsAuthenticated():
		return "unlocked"
	default:
		return "locked"
	}
}

// Run starts the synchronizer, asks for the credential when the store is
// protected and serves the REPL until the user exits.
func (a *App) Run(ctx context.Context) {

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		if err := a.core.Close(); err != nil {
			a.logger.Error(ctx, "closing store failed", logging.Err(err))
		}
	}()

	go a.sync.Run(ctx)

	fmt.Fprintln(a.out, "Welcome to WinOTP CLI (type 'help' for commands)")

	if a.keeper.Protected() {
		if err := a.Unlock(ctx); err != nil {
			fmt.Fprintln(a.out, "Error:", err)
		}
	}

	runREPL(ctx, a, a.status, a.reader)
}
