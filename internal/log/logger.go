// Package log wraps zerolog behind a small leveled facade so callers
// never touch the logging backend directly. The level is applied
// globally and may be changed at runtime.
//
// None of these functions are safe for the audio callback: they
// allocate and may block on the underlying writer.
package log

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: time.TimeOnly,
}).With().Timestamp().Logger()

// Init configures the global level and optionally mirrors output into
// a file next to the console writer. An empty path keeps console-only
// output. Unknown level strings fall back to info.
func Init(level string, logFile string) error {
	lvl, ok := ParseLevel(level)
	if !ok {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if logFile == "" {
		return nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	logger = zerolog.New(zerolog.MultiLevelWriter(console, f)).
		With().Timestamp().Logger()

	return nil
}

// ParseLevel converts a string (case-insensitive) to a zerolog level.
// Returns info and false if the string is not recognized.
func ParseLevel(levelStr string) (zerolog.Level, bool) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "fatal":
		return zerolog.FatalLevel, true
	default:
		return zerolog.InfoLevel, false
	}
}

// SetLevel sets the global logging level.
func SetLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// GetLevel returns the current global logging level.
func GetLevel() zerolog.Level {
	return zerolog.GlobalLevel()
}

// Debugf logs a formatted debug message.
func Debugf(format string, v ...any) {
	logger.Debug().Msgf(format, v...)
}

// Infof logs a formatted info message.
func Infof(format string, v ...any) {
	logger.Info().Msgf(format, v...)
}

// Warnf logs a formatted warning message.
func Warnf(format string, v ...any) {
	logger.Warn().Msgf(format, v...)
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...any) {
	logger.Error().Msgf(format, v...)
}

// Fatalf logs a formatted fatal message and exits the application.
func Fatalf(format string, v ...any) {
	logger.Fatal().Msgf(format, v...)
}

// Err logs an error value with a message, preserving the error field
// structure in the output.
func Err(err error, msg string) {
	logger.Error().Err(err).Msg(msg)
}
