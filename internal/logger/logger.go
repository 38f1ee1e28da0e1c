// Package logger configures the process-wide structured logger and the
// per-evaluation trace IDs that tie one symbol's evaluation cycle together
// across log lines.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type ctxKey struct{}

// Init builds the JSON logger for a service and installs it as the slog
// default so bare slog calls share the same output. Every record carries
// the service name.
func Init(service string, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	l := slog.New(h).With(slog.String("service", service))
	slog.SetDefault(l)
	return l
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown or empty
// values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// EvalTraceID builds the trace ID for one evaluation cycle:
// "{symbol}-{unixNano}". Unique per symbol at any realistic evaluation
// cadence, without a UUID dependency.
func EvalTraceID(symbol string, ts time.Time) string {
	return symbol + "-" + strconv.FormatInt(ts.UnixNano(), 10)
}

// WithTraceID attaches a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// TraceID returns the trace ID carried by the context, or "".
func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

// TraceAttr returns the trace_id attribute for the context. Without a trace
// ID it returns the zero Attr, which slog handlers ignore, so callers can
// pass it unconditionally.
func TraceAttr(ctx context.Context) slog.Attr {
	tid := TraceID(ctx)
	if tid == "" {
		return slog.Attr{}
	}
	return slog.String("trace_id", tid)
}
