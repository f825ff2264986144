package util

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
}

// NewLoggerWithFile tees log output to a file in addition to stdout. An empty
// path or an unopenable file falls back to stdout only.
func NewLoggerWithFile(level, path string) zerolog.Logger {
	if path == "" {
		return NewLogger(level)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log := NewLogger(level)
		log.Warn().Err(err).Str("path", path).Msg("log file unavailable, using stdout only")
		return log
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	writer := zerolog.MultiLevelWriter(os.Stdout, file)
	return zerolog.New(writer).With().Timestamp().Logger().Level(lvl)
}
