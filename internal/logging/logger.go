package logging

import (
	"context"
	"fmt"

	"registrationportal/internal/ctxdata"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerKey struct{}

const (
	requestID = "request_id"
	clientIP  = "client_ip"
)

var (
	loggerKeyInstance = loggerKey{}
)

type Logger struct {
	l *zap.Logger
}

func New(zapLogger *zap.Logger) *Logger {
	return &Logger{zapLogger}
}

// NewNop returns a logger that discards everything. Used by tests and as a
// fallback when no logger is attached to a context.
func NewNop() *Logger {
	return &Logger{zap.NewNop()}
}

// Build creates the process zap logger. Extra cores are teed next to the
// primary encoder, which is how the activity log is attached.
func Build(level, format string, extra ...zapcore.Core) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		if len(extra) == 0 {
			return c
		}
		return zapcore.NewTee(append([]zapcore.Core{c}, extra...)...)
	}))
}

func ContextWithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKeyInstance, logger)
}

func GetFromContext(ctx context.Context) (*Logger, bool) {
	logger, ok := ctx.Value(loggerKeyInstance).(*Logger)
	return logger, ok
}

// FromContext is GetFromContext with a fallback.
func FromContext(ctx context.Context, fallback *Logger) *Logger {
	if l, ok := GetFromContext(ctx); ok {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return NewNop()
}

func (l *Logger) Zap() *zap.Logger {
	return l.l
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	fields = fieldsWithRequestData(ctx, fields)
	l.l.Debug(msg, fields...)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	fields = fieldsWithRequestData(ctx, fields)
	l.l.Info(msg, fields...)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	fields = fieldsWithRequestData(ctx, fields)
	l.l.Warn(msg, fields...)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	fields = fieldsWithRequestData(ctx, fields)
	l.l.Error(msg, fields...)
}

func (l *Logger) Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	fields = fieldsWithRequestData(ctx, fields)
	l.l.Fatal(msg, fields...)
}

func (l *Logger) Sync() error {
	return l.l.Sync()
}

func fieldsWithRequestData(ctx context.Context, fields []zap.Field) []zap.Field {
	if traceId, ok := ctxdata.GetTraceID(ctx); ok {
		fields = append(fields, zap.String(requestID, traceId))
	}
	if ip, ok := ctxdata.GetClientIP(ctx); ok {
		fields = append(fields, zap.String(clientIP, ip))
	}
	return fields
}
