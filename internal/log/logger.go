package log

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
)

// level returns Debug in verbose mode and Warn otherwise.
func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// trimSource shortens source file paths to their base name.
func trimSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		if source, ok := a.Value.Any().(*slog.Source); ok {
			source.File = filepath.Base(source.File)
		}
	}
	return a
}

// NewSecureLogger creates a sanitizing logger with colored, human-readable
// output. Colors are disabled when w is not a terminal.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	handler := tint.NewHandler(w, &tint.Options{
		AddSource:   verbose,
		Level:       level(verbose),
		ReplaceAttr: trimSource,
		NoColor:     !isTerminal(w),
	})
	return slog.New(NewSecureHandler(handler))
}

// NewSecureJSONLogger creates a sanitizing logger that outputs JSON.
// Useful for structured log aggregation.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource:   verbose,
		Level:       level(verbose),
		ReplaceAttr: trimSource,
	})
	return slog.New(NewSecureHandler(handler))
}

// New returns the JSON logger for format "json" and the text logger otherwise.
func New(w io.Writer, format string, verbose bool) *slog.Logger {
	if format == "json" {
		return NewSecureJSONLogger(w, verbose)
	}
	return NewSecureLogger(w, verbose)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
