package logger_i

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/akolanti/landbot/internal/config"
)

type Logger struct {
	inner *slog.Logger
}

// Init installs the process-wide handler: human readable text while debugging, JSON otherwise.
func Init(debug bool) {
	InitWithWriter(os.Stdout, debug)
}

func InitWithWriter(w io.Writer, debug bool) {
	options := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}

	var handler slog.Handler
	if debug {
		handler = slog.NewTextHandler(w, options)
	} else {
		options.Level = config.LOG_LEVEL_PROD
		handler = slog.NewJSONHandler(w, options)
	}
	slog.SetDefault(slog.New(handler))
}

func NewLogger(section string) *Logger {
	return &Logger{
		inner: slog.Default().With("component", section),
	}
}

// FromContext returns a logger carrying the request trace id, when there is one.
func (l *Logger) FromContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	if trace, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok && trace != "" {
		return l.With(config.TRACE_ID_KEY, trace)
	}
	return l
}

func (l *Logger) Info(msg string, args ...any) {
	l.inner.Info(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if !l.inner.Enabled(context.Background(), level) {
		return
	}
	l.inner.Log(context.Background(), level, msg, args...)
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		inner: l.inner.With(args...),
	}
}
