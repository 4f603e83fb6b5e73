// Package logger is the structured log used during a vpsctl run. Every
// entry about a resource or a check carries its id so a run's log can be
// joined with the audit history.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvLevel names the environment variable consulted when Options.Level is empty.
const EnvLevel = "VPSCTL_LOG_LEVEL"

// Field keys shared by the reconciler, the check registry and the CLI.
const (
	FieldResource = "resource"
	FieldGroup    = "group"
	FieldCheck    = "check"
	FieldKind     = "kind"
)

// Options describes logger configuration supplied at creation time.
type Options struct {
	// Level is a zerolog level name. Empty falls back to VPSCTL_LOG_LEVEL,
	// then to info.
	Level string
	// HumanReadable selects the console writer used on interactive hosts;
	// otherwise entries are JSON lines suitable for journald or cron mail.
	HumanReadable bool
	// Writer defaults to stderr so stdout stays free for reports.
	Writer io.Writer
}

// Logger wraps zerolog. A nil *Logger discards everything.
type Logger struct {
	base zerolog.Logger
}

// New creates a Logger from opts.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var output io.Writer = writer
	if opts.HumanReadable {
		console := zerolog.NewConsoleWriter()
		console.Out = writer
		console.TimeFormat = time.RFC3339
		output = console
	}

	return &Logger{base: zerolog.New(output).Level(level).With().Timestamp().Logger()}, nil
}

func parseLevel(name string) (zerolog.Level, error) {
	source := "log level"
	if name == "" {
		name = os.Getenv(EnvLevel)
		source = EnvLevel
	}
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid %s %q: %w", source, name, err)
	}
	return level, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{base: zerolog.Nop()}
}

// ForResource scopes the logger to one resource of a run.
func (l *Logger) ForResource(id, group string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{base: l.base.With().Str(FieldResource, id).Str(FieldGroup, group).Logger()}
}

// ForCheck scopes the logger to one verification check.
func (l *Logger) ForCheck(name string) *Logger {
	return l.With(FieldCheck, name)
}

// WithFields returns a derived logger that always writes the supplied fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}

	builder := l.base.With()
	for key, value := range fields {
		builder = builder.Interface(key, value)
	}
	return &Logger{base: builder.Logger()}
}

// With returns a derived logger carrying a single string field.
func (l *Logger) With(key, value string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{base: l.base.With().Str(key, value).Logger()}
}

// Info writes an informational log entry.
func (l *Logger) Info(msg string) {
	if l == nil {
		return
	}
	l.base.Info().Msg(msg)
}

// Debug writes a debug-level log entry if enabled.
func (l *Logger) Debug(msg string) {
	if l == nil {
		return
	}
	l.base.Debug().Msg(msg)
}

// Warn writes a warning level log entry.
func (l *Logger) Warn(msg string) {
	if l == nil {
		return
	}
	l.base.Warn().Msg(msg)
}

// Error writes an error log entry including the supplied error context.
func (l *Logger) Error(err error, msg string) {
	if l == nil {
		return
	}
	event := l.base.Error()
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)
}
