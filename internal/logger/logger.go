package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup returns a JSON logger tagged with the service name.
func Setup(w io.Writer, service string, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", service)
}

// SetupDefault installs Setup's logger as the slog default and returns it.
func SetupDefault(w io.Writer, service string, level slog.Level) *slog.Logger {
	l := Setup(w, service, level)
	slog.SetDefault(l)
	return l
}
