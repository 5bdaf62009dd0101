package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. Every record carries the service name;
// LOG_LEVEL overrides the environment default.
func NewLogger(appEnv, service string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}

	var out io.Writer = os.Stdout
	if appEnv == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	return ctx.Logger()
}

// NopLogger returns a logger that discards everything; used by tests and
// optional dependencies.
func NopLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// Logger aliases the zerolog.Logger so callers outside the infra package can
// depend on the logging contract without importing the third-party module
// directly.
type Logger = zerolog.Logger
