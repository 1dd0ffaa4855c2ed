package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is the structured logger shared by every component. Call sites pass
// alternating key/value pairs after the message.
type Logger struct {
	*slog.Logger
}

// Options tunes the handler behind a Logger.
type Options struct {
	Level  string
	Format string // "text" or "json"
	Prefix string
	Output io.Writer
}

// NewLogger returns a text logger writing to stdout at the given level.
func NewLogger(level string) *Logger {
	return New(Options{Level: level})
}

// New builds a Logger from opts. Unknown levels fall back to info.
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	lvl, err := log.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		lvl = log.InfoLevel
	}

	formatter := log.TextFormatter
	if strings.EqualFold(opts.Format, "json") {
		formatter = log.JSONFormatter
	}

	handler := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
		Level:           lvl,
		Prefix:          opts.Prefix,
		Formatter:       formatter,
	})

	return &Logger{Logger: slog.New(handler)}
}

// Nop discards everything. Useful in tests.
func Nop() *Logger {
	return New(Options{Output: io.Discard, Level: "error"})
}

// With returns a child logger carrying args on every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}
