package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// newLogger creates the process logger. If out is a terminal then
// ConsoleWriter is used for prettier output.
func newLogger(level string, out *os.File) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	if term.IsTerminal(int(out.Fd())) {
		w := zerolog.NewConsoleWriter()
		w.TimeFormat = time.RFC3339
		w.Out = out
		return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
