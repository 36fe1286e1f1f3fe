// Package logging builds the application logger: a zerolog logger writing
// to the console and, when configured, appending to a log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/seb-verificator/sebv"

	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	// Level is a zerolog level name; empty means info.
	Level string
	// File is appended to when non-empty.
	File string
	// Console enables the human readable console writer.
	Console bool
	// Out receives console output; nil means stderr.
	Out io.Writer
	// NoColor disables ANSI colors on the console.
	NoColor bool
}

// Logger is a zerolog logger bound to its sinks.
type Logger struct {
	zerolog.Logger

	sinks []io.Writer
	file  *os.File
}

// ParseLevel parses a level name, treating empty as the default level.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		s = internal.DefaultLogLevel
	}
	if s == "warning" {
		s = "warn"
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// New opens the configured sinks. Without a console and a file the logger
// discards everything.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	l := &Logger{}
	var writers []io.Writer

	if opts.Console {
		out := opts.Out
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: opts.NoColor})
		l.sinks = append(l.sinks, out)
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("could not create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		l.file = f
		writers = append(writers, f)
		l.sinks = append(l.sinks, f)
	}

	var w io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		w = writers[0]
	default:
		w = zerolog.MultiLevelWriter(writers...)
	}

	l.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return l, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// Line writes text verbatim to every sink, bypassing levels. It is used for
// separators and headings in the log.
func (l *Logger) Line(text string) {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	for _, sink := range l.sinks {
		_, _ = io.WriteString(sink, text)
	}
}

// Slog returns a slog logger that forwards records to this logger.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(NewSlogHandler(l.Logger))
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
