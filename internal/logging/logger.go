package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnvVar names the environment variable that selects the log level when
// no explicit level is passed to Init.
const LevelEnvVar = "SMARTDOG_LOG_LEVEL"

// Init initializes the global logger for interactive use (CLI, local web UI).
// level is one of debug, info, warn, error; an empty level falls back to
// SMARTDOG_LOG_LEVEL and then to info.
func Init(level string) {
	SetLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// InitJSON initializes the global logger with plain JSON output on stdout,
// which is what CloudWatch expects from a Lambda function.
func InitJSON(level string) {
	SetLevel(level)
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// SetLevel sets the global zerolog level without touching the output.
func SetLevel(level string) {
	if level == "" {
		level = os.Getenv(LevelEnvVar)
	}
	switch strings.ToLower(level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
