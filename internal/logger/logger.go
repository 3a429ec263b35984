// Package logger provides the service-wide zerolog logger.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// InitLog returns a JSON logger writing to stderr at the given level.
// An empty or unknown level falls back to info.
func InitLog(level string) *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	Logger := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
	return &Logger
}

// Nop returns a logger that discards everything, used in tests.
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
