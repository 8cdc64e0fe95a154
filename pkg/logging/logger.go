package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

type Logger struct {
	*slog.Logger
}

type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// ContextKey for correlation IDs
type contextKey string

const correlationIDKey contextKey = "correlation_id"

func NewLogger(level LogLevel) *Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo writes JSON records to w.
func NewLoggerTo(w io.Writer, level LogLevel) *Logger {
	opts := &slog.HandlerOptions{
		Level: level.slogLevel(),
	}
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, opts))}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, LevelError)
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithCorrelationID adds a correlation ID to the context
func WithCorrelationID(ctx context.Context) context.Context {
	if GetCorrelationID(ctx) == "" {
		return SetCorrelationID(ctx, uuid.New().String())
	}
	return ctx
}

// SetCorrelationID stores an externally supplied correlation ID.
func SetCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// GetCorrelationID retrieves the correlation ID from context
func GetCorrelationID(ctx context.Context) string {
	if correlationID, ok := ctx.Value(correlationIDKey).(string); ok {
		return correlationID
	}
	return ""
}

func withCorrelation(ctx context.Context, args []any) []any {
	if correlationID := GetCorrelationID(ctx); correlationID != "" {
		args = append(args, "correlation_id", correlationID)
	}
	return args
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.Logger.Debug(msg, withCorrelation(ctx, args)...)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.Logger.Info(msg, withCorrelation(ctx, args)...)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.Logger.Warn(msg, withCorrelation(ctx, args)...)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.Logger.Error(msg, withCorrelation(ctx, args)...)
}

// LogLinkOperation logs link operations without the destination URL
func (l *Logger) LogLinkOperation(ctx context.Context, operation, code string, success bool) {
	l.Logger.Info("link operation",
		"operation", operation,
		"code", code,
		"success", success,
		"correlation_id", GetCorrelationID(ctx),
	)
}

// LogResolution records which branch of key resolution answered a request.
func (l *Logger) LogResolution(ctx context.Context, key, kind string) {
	if kind == "forbidden_self" {
		// the key may be the secret itself
		key = maskSensitiveData(key)
	}
	l.Logger.Debug("key resolved",
		"key", key,
		"kind", kind,
		"correlation_id", GetCorrelationID(ctx),
	)
}

// LogAuthEvent logs credential checks; the presented credential is masked.
func (l *Logger) LogAuthEvent(ctx context.Context, event, credential string, success bool) {
	l.Logger.Info("auth event",
		"event", event,
		"credential", maskSensitiveData(credential),
		"success", success,
		"correlation_id", GetCorrelationID(ctx),
	)
}

// LogRequest logs one served HTTP request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status, bytes int, elapsed time.Duration) {
	l.Logger.Info("http request",
		"method", method,
		"path", path,
		"status", status,
		"bytes", bytes,
		"duration_ms", elapsed.Milliseconds(),
		"correlation_id", GetCorrelationID(ctx),
	)
}

func maskSensitiveData(data string) string {
	if len(data) < 12 {
		return "***"
	}
	// Show first 2 and last 2 chars with stars in middle
	return data[:2] + "***" + data[len(data)-2:]
}
