// Package logger provides structured logging for the proxy, wrapping
// log/slog with proxy-id and correlation-id aware context propagation.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// DefaultLogger is the global structured logger instance. It is safe for
// concurrent use.
var DefaultLogger *slog.Logger

// currentFormat remembers the configured handler format so SetLevel can
// rebuild the logger without losing it.
var currentFormat string

func init() {
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = ParseLevel(envLevel)
	}
	currentFormat = strings.ToLower(os.Getenv("LOG_FORMAT"))
	DefaultLogger = New(level, currentFormat)
	slog.SetDefault(DefaultLogger)
}

// ParseLevel converts a textual level ("debug", "info", "warn", "error")
// into a slog.Level, defaulting to Info for unrecognized values.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// New builds a logger writing to stderr with the requested level and
// format ("json" selects slog.JSONHandler; anything else selects a text
// handler). Every log line is wrapped with a handler that pulls proxy_id
// and correlation_id out of the context automatically.
func New(level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if format == "json" {
		base = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		base = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(&contextHandler{Handler: base})
}

// SetLevel replaces the global logger's level, preserving the configured
// output format.
func SetLevel(level slog.Level) {
	DefaultLogger = New(level, currentFormat)
	slog.SetDefault(DefaultLogger)
}

// contextKey is a private type for context keys to avoid collisions with
// other packages' context values.
type contextKey string

const (
	keyProxyID       contextKey = "proxy_id"
	keyCorrelationID contextKey = "correlation_id"
	keySubscription  contextKey = "subscription"
)

// WithProxyID returns a context carrying the proxy id for log enrichment.
func WithProxyID(ctx context.Context, proxyID string) context.Context {
	return context.WithValue(ctx, keyProxyID, proxyID)
}

// WithCorrelationID returns a context carrying the correlation id for log
// enrichment.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, keyCorrelationID, correlationID)
}

// WithSubscription returns a context carrying the subscription name for log
// enrichment.
func WithSubscription(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keySubscription, name)
}

// contextHandler decorates every record with fields pulled from the
// context, without requiring each call site to add them explicitly.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if v, ok := ctx.Value(keyProxyID).(string); ok && v != "" {
		r.AddAttrs(slog.String("proxy_id", v))
	}
	if v, ok := ctx.Value(keyCorrelationID).(string); ok && v != "" {
		r.AddAttrs(slog.String("correlation_id", v))
	}
	if v, ok := ctx.Value(keySubscription).(string); ok && v != "" {
		r.AddAttrs(slog.String("subscription", v))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}

// Info logs at info level.
func Info(msg string, args ...any) { DefaultLogger.Info(msg, args...) }

// InfoContext logs at info level with context-derived fields.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { DefaultLogger.Debug(msg, args...) }

// DebugContext logs at debug level with context-derived fields.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) { DefaultLogger.Warn(msg, args...) }

// WarnContext logs at warn level with context-derived fields.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) { DefaultLogger.Error(msg, args...) }

// ErrorContext logs at error level with context-derived fields.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}
