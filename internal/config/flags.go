package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/xBounceIT/WinOTP-sub000/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   data directory
//	-b string   store backend: file or sqlite
//	-a string   gRPC bind address (daemon)
//	-i int      time sync interval, seconds
//	-n string   comma-separated NTP servers
//	-l string   log level
//
// os.Args is filtered through flagx.FilterArgs first so the -c/-config flag
// and unrelated arguments do not trip the parser.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-b", "-a", "-i", "-n", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DataDir, "d", config.DataDir, "data directory")
	fs.StringVar(&config.StoreBackend, "b", config.StoreBackend, "store backend (file|sqlite)")
	fs.StringVar(&config.GRPCAddr, "a", config.GRPCAddr, "gRPC bind address")
	syncInterval := fs.Int("i", int(config.SyncInterval.Seconds()), "time sync interval (in seconds)")
	servers := fs.String("n", strings.Join(config.NTPServers, ","), "comma-separated NTP servers")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SyncInterval = time.Duration(*syncInterval) * time.Second
	config.NTPServers = splitServers(*servers)
}

func splitServers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
