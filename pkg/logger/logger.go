// Package logger provides the structured logger shared by the service layer.
// It wraps logrus so call sites can use Infof/WithError/WithField directly.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LoggingConfig controls level, encoding and destination of log output.
type LoggingConfig struct {
	Level      string
	Format     string
	Output     string
	FilePrefix string
}

// Logger is a logrus logger with request-scoped helpers.
type Logger struct {
	*logrus.Logger
	closer io.Closer
}

// New builds a logger from cfg. Unknown levels fall back to info and an
// unusable log file falls back to stdout.
func New(cfg LoggingConfig) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	out := &Logger{Logger: l}
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		l.SetOutput(os.Stderr)
	case "file":
		f, err := openLogFile(cfg.FilePrefix, time.Now())
		if err != nil {
			l.SetOutput(os.Stdout)
			l.WithError(err).Warn("falling back to stdout logging")
			break
		}
		l.SetOutput(f)
		out.closer = f
	default:
		l.SetOutput(os.Stdout)
	}
	return out
}

// Wrap adapts an existing logrus logger, typically one built by logrus/hooks/test.
func Wrap(l *logrus.Logger) *Logger {
	return &Logger{Logger: l}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{Logger: l}
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// WithTrace returns an entry carrying the request trace ID from ctx.
func (l *Logger) WithTrace(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithContext(ctx)
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		entry = entry.WithField("trace_id", traceID)
	}
	return entry
}

// LogRequest writes one access-log line for a served request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	entry := l.WithTrace(ctx).WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	})
	switch {
	case status >= 500:
		entry.Error("request failed")
	case status >= 400:
		entry.Warn("request rejected")
	default:
		entry.Info("request served")
	}
}

func openLogFile(prefix string, now time.Time) (*os.File, error) {
	if prefix == "" {
		prefix = "paneladmin"
	}
	name := fmt.Sprintf("%s-%s.log", prefix, now.Format("2006-01-02"))
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	return os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

type traceKey struct{}

// NewTraceID returns a fresh request trace identifier.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores traceID in ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceIDFromContext returns the trace ID stored in ctx or "".
func TraceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceKey{}).(string); ok {
		return v
	}
	return ""
}
