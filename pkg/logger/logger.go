// Package logger provides a zap-based application logger that stamps every
// record with the service name and, when available, the active trace id.
package logger

import (
	"context"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the minimum level a logger emits.
type Level string

// Log levels.
const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// TraceIDFn extracts the current trace id from the context, or "" if the
// context carries no span.
type TraceIDFn func(ctx context.Context) string

// Logger wraps zap with context-aware level methods.
type Logger struct {
	zap     *zap.Logger
	traceID TraceIDFn
}

// New constructs a JSON logger writing to w. traceIDFn may be nil.
func New(w io.Writer, minLevel Level, service string, traceIDFn TraceIDFn) *Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg),
		zapcore.AddSync(w),
		zapLevel(minLevel),
	)
	z := zap.New(core).With(zap.String("service", service))
	return &Logger{zap: z, traceID: traceIDFn}
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// Zap exposes the underlying zap logger for collaborators that take one.
func (l *Logger) Zap() *zap.Logger { return l.zap }

// Debug logs at debug level.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.write(ctx, l.zap.Debug, msg, args)
}

// Info logs at info level.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.write(ctx, l.zap.Info, msg, args)
}

// Warn logs at warn level.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.write(ctx, l.zap.Warn, msg, args)
}

// Error logs at error level.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.write(ctx, l.zap.Error, msg, args)
}

func (l *Logger) write(ctx context.Context, emit func(string, ...zap.Field), msg string, args []any) {
	fields := make([]zap.Field, 0, len(args)/2+1)
	if l.traceID != nil {
		if id := l.traceID(ctx); id != "" {
			fields = append(fields, zap.String("trace_id", id))
		}
	}
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = "malformed_key"
		}
		fields = append(fields, zap.Any(key, args[i+1]))
	}
	emit(msg, fields...)
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
