package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isUnlocked() bool
	List(ctx context.Context) error
	Next(ctx context.Context) error
	Search(ctx context.Context, query string) error
	Sort(ctx context.Context, order string) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, src string) error
	Export(ctx context.Context, dst string) error
	QR(ctx context.Context, id, pngPath string) error
	SetPIN(ctx context.Context) error
	SetPassword(ctx context.Context) error
	Disable(ctx context.Context) error
	Timeout(ctx context.Context, minutes string) error
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	NTP(ctx context.Context) error
	Sync(ctx context.Context) error
	Backup(ctx context.Context) error
}

const (
	helpLocked   = "Available commands: unlock, ntp, sync, exit"
	helpUnlocked = "Available commands: (l)ist, next, add, edit <id>, delete <id>, search <text>, sort asc|desc, " +
		"import <file|uri>, export <file|uri>, qr <id> [file.png], setpin, setpassword, disable, " +
		"timeout <minutes>, lock, ntp, sync, backup, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a.
// The loop exits on EOF or when the user types "exit" or "quit".
//
// Commands that need an argument print their usage when it is missing.
// Errors returned by handlers are printed and the loop carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("winotp (%s)> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isUnlocked() {
				printlnFn(helpUnlocked)
			} else {
				printlnFn(helpLocked)
			}

		case "l", "list":
			cmdErr = a.List(ctx)

		case "next":
			cmdErr = a.Next(ctx)

		case "search":
			cmdErr = a.Search(ctx, strings.Join(args, " "))

		case "sort":
			if len(args) == 0 {
				printlnFn("Usage: sort asc|desc")
				continue
			}
			cmdErr = a.Sort(ctx, args[0])

		case "add":
			cmdErr = a.Add(ctx)

		case "edit":
			if len(args) == 0 {
				printlnFn("Usage: edit <id>")
				continue
			}
			cmdErr = a.Edit(ctx, args[0])

		case "delete":
			if len(args) == 0 {
				printlnFn("Usage: delete <id>")
				continue
			}
			cmdErr = a.Delete(ctx, args[0])

		case "import":
			if len(args) == 0 {
				printlnFn("Usage: import <file|otpauth uri>")
				continue
			}
			cmdErr = a.Import(ctx, args[0])

		case "export":
			if len(args) == 0 {
				printlnFn("Usage: export <file>[.age] | export uri")
				continue
			}
			cmdErr = a.Export(ctx, args[0])

		case "qr":
			if len(args) == 0 {
				printlnFn("Usage: qr <id> [file.png]")
				continue
			}
			png := ""
			if len(args) > 1 {
				png = args[1]
			}
			cmdErr = a.QR(ctx, args[0], png)

		case "setpin":
			cmdErr = a.SetPIN(ctx)

		case "setpassword":
			cmdErr = a.SetPassword(ctx)

		case "disable":
			cmdErr = a.Disable(ctx)

		case "timeout":
			if len(args) == 0 {
				printlnFn("Usage: timeout <minutes> (0 disables)")
				continue
			}
			cmdErr = a.Timeout(ctx, args[0])

		case "lock":
			cmdErr = a.Lock(ctx)

		case "unlock":
			cmdErr = a.Unlock(ctx)

		case "ntp":
			cmdErr = a.NTP(ctx)

		case "sync":
			cmdErr = a.Sync(ctx)

		case "backup":
			cmdErr = a.Backup(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
