package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Configure builds a zerolog logger from config values. Logs go to stderr so
// command output on stdout stays clean.
func Configure(level, format string) zerolog.Logger {
	return New(os.Stderr, level, format)
}

// New builds a logger writing to out.
func New(out io.Writer, level, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	output := out
	if strings.EqualFold(format, "console") {
		output = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(output).Level(lvl).With().Timestamp().Logger()
}
