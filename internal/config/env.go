package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name declared in Config's env tags.
const EnvPrefix = "WINOTP_"

// dotenvFiles lists the files loaded into the process environment before
// parsing. Variables that are already set are never overwritten.
var dotenvFiles = []string{".env"}

// parseEnv overlays WINOTP_* environment variables onto config. Fields whose
// variable is unset keep their current value. A missing .env file is not an
// error; an unreadable one or an unparsable value panics, like the JSON and
// flag loaders.
func parseEnv(config *Config) {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(err)
	}
}
