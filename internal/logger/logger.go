package logger

import (
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
}

// Init installs a JSON logger on stdout at the given level
// ("debug", "info", "warn", "error"; unknown values mean info).
func Init(level string) {
	SetOutput(os.Stdout, level)
	Info("logger initialized", map[string]any{"level": parseLevel(level).String()})
}

// SetOutput redirects logging, mainly for tests.
func SetOutput(w io.Writer, level string) {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	l := slog.New(h)
	current.Store(l)
	slog.SetDefault(l)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// attrs flattens fields into sorted key/value args so output is stable.
func attrs(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return args
}

func Debug(msg string, fields map[string]any) {
	current.Load().Debug(msg, attrs(fields)...)
}

func Info(msg string, fields map[string]any) {
	current.Load().Info(msg, attrs(fields)...)
}

func Warn(msg string, fields map[string]any) {
	current.Load().Warn(msg, attrs(fields)...)
}

func Error(msg string, fields map[string]any) {
	current.Load().Error(msg, attrs(fields)...)
}

func Fatal(msg string, fields map[string]any) {
	current.Load().Error(msg, append(attrs(fields), "fatal", true)...)
	os.Exit(1)
}
