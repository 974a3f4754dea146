// Command winotpd keeps the token store open and serves it over gRPC on a
// loopback address. Configuration comes from WINOTP_* variables, an optional
// JSON file (-c) and flags.
package main

import (
	"context"
	"os"

	"github.com/xBounceIT/WinOTP-sub000/internal/config"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
	"github.com/xBounceIT/WinOTP-sub000/internal/server"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", logging.Err(err))
		os.Exit(1)
	}

	app.Run(ctx)
}
