package logging

import (
	"context"
	"maps"
	"slices"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger writes structured JSON through a zap logger
type ZapLogger struct {
	logger *zap.Logger
	level  zap.AtomicLevel
}

// NewZapLogger creates a JSON logger on stderr with zap's production settings
func NewZapLogger() (*ZapLogger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{logger: logger, level: level}, nil
}

// NewZapLoggerFromCore wraps an existing zap core, e.g. an observer in tests
func NewZapLoggerFromCore(core zapcore.Core) *ZapLogger {
	return &ZapLogger{
		logger: zap.New(core),
		level:  zap.NewAtomicLevelAt(zapcore.InfoLevel),
	}
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func zapFields(err error, fields []Fields) []zap.Field {
	merged := make(Fields)
	for _, f := range fields {
		maps.Copy(merged, f)
	}

	out := make([]zap.Field, 0, len(merged)+1)
	if err != nil {
		out = append(out, zap.Error(err))
	}
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		out = append(out, zap.Any(k, merged[k]))
	}
	return out
}

func (z *ZapLogger) log(level Level, err error, msg string, fields []Fields) {
	zl := toZapLevel(level)
	if !z.level.Enabled(zl) {
		return
	}
	if ce := z.logger.Check(zl, msg); ce != nil {
		ce.Write(zapFields(err, fields)...)
	}
}

func (z *ZapLogger) Debug(msg string, fields ...Fields) {
	z.log(DebugLevel, nil, msg, fields)
}

func (z *ZapLogger) Info(msg string, fields ...Fields) {
	z.log(InfoLevel, nil, msg, fields)
}

func (z *ZapLogger) Warn(msg string, fields ...Fields) {
	z.log(WarnLevel, nil, msg, fields)
}

func (z *ZapLogger) Error(err error, msg string, fields ...Fields) {
	z.log(ErrorLevel, err, msg, fields)
}

// Fatal logs and exits through zap
func (z *ZapLogger) Fatal(err error, msg string, fields ...Fields) {
	z.log(FatalLevel, err, msg, fields)
}

func (z *ZapLogger) WithFields(fields Fields) Logger {
	return &ZapLogger{
		logger: z.logger.With(zapFields(nil, []Fields{fields})...),
		level:  z.level,
	}
}

func (z *ZapLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := FieldsFromContext(ctx); ok {
		return z.WithFields(fields)
	}
	return z
}

// SetLevel changes the level of this logger and every logger derived from it
func (z *ZapLogger) SetLevel(level Level) {
	z.level.SetLevel(toZapLevel(level))
}

// Sync flushes buffered entries
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}
