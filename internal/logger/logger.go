// Package logger builds the process-wide slog logger.
package logger

import (
	"io"
	"log"
	"log/slog"
	"os"
)

// SetupLogger returns a JSON logger at info level, or a colourised
// human-readable one at debug level when debug is set.
func SetupLogger(debug bool) *slog.Logger {
	return New(os.Stdout, debug)
}

// New is SetupLogger with an explicit destination.
func New(w io.Writer, debug bool) *slog.Logger {
	var handler slog.Handler
	if debug {
		handler = NewPrettyHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.New(handler)
}

type out struct {
	stdLog *slog.Logger
}

func (l out) Write(p []byte) (n int, err error) {
	l.stdLog.Info(string(p))
	return len(p), nil
}

// LogAdapter exposes logger as a standard library *log.Logger, e.g. for
// http.Server.ErrorLog.
func LogAdapter(logger *slog.Logger) *log.Logger {
	return log.New(&out{logger}, "", 0)
}
