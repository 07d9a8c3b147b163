package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Setup builds the process-wide zerolog logger used by cmd/compile and
// optionally threaded into compiler.CompileOptions for pipeline tracing.
func Setup(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(os.Stderr).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Nop returns a disabled logger, for a caller that does not want to
// configure one explicitly.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
