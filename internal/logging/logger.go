// Package logging builds the slog loggers used across slidecast.
//
// Console output is slog's key=value text form; json output renames the
// standard keys to ts/level/msg. Discard returns a logger for tests and for
// wiring code that has no logger configured.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/slidecast/slidecast/internal/config"
)

// Options configures logger construction.
type Options struct {
	Level     string
	Format    string
	Output    io.Writer
	AddSource bool
}

// New constructs a slog logger from options. Output defaults to stderr.
func New(opts Options) (*slog.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	lvl := new(slog.LevelVar)
	lvl.Set(level)

	w := opts.Output
	if w == nil {
		w = os.Stderr
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case "", "console":
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:       lvl,
			AddSource:   opts.AddSource,
			ReplaceAttr: replaceConsoleAttr,
		})), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       lvl,
			AddSource:   opts.AddSource,
			ReplaceAttr: replaceJSONAttr,
		})), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig builds a logger from the logging section of cfg.
func NewFromConfig(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	return New(Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    w,
		AddSource: cfg.Logging.Level == "debug",
	})
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func parseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log level: unsupported value %q", value)
	}
}

func replaceConsoleAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().Format(time.TimeOnly))
		}
	case slog.SourceKey:
		attr = shortSource(attr)
	}
	return attr
}

func replaceJSONAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "ts"
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
		}
	case slog.LevelKey:
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	case slog.SourceKey:
		attr = shortSource(attr)
	}
	return attr
}

func shortSource(attr slog.Attr) slog.Attr {
	if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
		attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
	}
	return attr
}
