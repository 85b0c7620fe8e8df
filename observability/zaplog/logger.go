// Package zaplog adapts go.uber.org/zap to the runtime's core.Logger
// interface.
package zaplog

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hostgpu/go-stream-runtime/core"
)

// Logger wraps a zap.Logger behind core.Logger.
type Logger struct {
	z *zap.Logger
}

var _ core.Logger = (*Logger)(nil)

// Wrap adapts an existing zap logger.
func Wrap(z *zap.Logger) *Logger {
	return &Logger{z: z}
}

// New builds a zap-backed logger from a level name ("debug", "info", "warn",
// "error") and format ("console" or "json"), writing to stderr. The caller
// should defer Sync on the returned logger.
func New(levelName, format string) *Logger {
	level := zap.NewAtomicLevel()
	switch strings.ToLower(levelName) {
	case "debug":
		level.SetLevel(zap.DebugLevel)
	case "info":
		level.SetLevel(zap.InfoLevel)
	case "warn", "warning":
		level.SetLevel(zap.WarnLevel)
	case "error":
		level.SetLevel(zap.ErrorLevel)
	default:
		level.SetLevel(zap.InfoLevel)
	}

	var encoder zapcore.Encoder
	if strings.ToLower(format) == "json" {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	zcore := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)
	return &Logger{z: zap.New(zcore)}
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

func (l *Logger) Debug(msg string, fields ...core.Field) {
	l.z.Debug(msg, zapFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...core.Field) {
	l.z.Info(msg, zapFields(fields)...)
}

func (l *Logger) Warn(msg string, fields ...core.Field) {
	l.z.Warn(msg, zapFields(fields)...)
}

func (l *Logger) Error(msg string, fields ...core.Field) {
	l.z.Error(msg, zapFields(fields)...)
}

func zapFields(fields []core.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	zf := make([]zap.Field, len(fields))
	for i, f := range fields {
		zf[i] = zap.Any(f.Key, f.Value)
	}
	return zf
}
