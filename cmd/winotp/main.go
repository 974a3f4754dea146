// Command winotp is the interactive authenticator: it opens the local token
// store directly and shows codes in a REPL.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/xBounceIT/WinOTP-sub000/internal/cli"
	"github.com/xBounceIT/WinOTP-sub000/internal/config"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewTextLogger(os.Stderr, cfg.LogLevel)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "winotp: %v\n", err)
		os.Exit(1)
	}

	app.Run(ctx)
}
