package utils

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a JSON logger writing to out at the named level.
// An unknown level falls back to info and is reported as the second value.
func NewLogger(out io.Writer, level string) (zerolog.Logger, bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	valid := err == nil && lvl != zerolog.NoLevel
	if !valid {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), valid
}
