package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. The level comes from LOG_LEVEL
// when set, otherwise fallback is used.
func Init(fallback zerolog.Level) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
	}).With().Timestamp().Logger()

	level := fallback
	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		level = ParseLevel(l, fallback)
	}
	zerolog.SetGlobalLevel(level)
}

// SetLevel overrides the global level, typically from a --log-level flag.
// Empty or unknown values leave the current level untouched.
func SetLevel(name string) {
	if name == "" {
		return
	}
	zerolog.SetGlobalLevel(ParseLevel(name, zerolog.GlobalLevel()))
}

// ParseLevel maps the LOG_LEVEL vocabulary onto zerolog levels.
func ParseLevel(name string, fallback zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dev", "development", "debug":
		return zerolog.DebugLevel
	case "trace":
		return zerolog.TraceLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "production", "prod":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	}
	return fallback
}
