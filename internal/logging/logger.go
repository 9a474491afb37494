package logging

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey struct{}

var (
	defaultLogger     *zap.Logger
	defaultLoggerOnce sync.Once
	confMu            sync.Mutex
)

var conf = &Config{
	Level: zapcore.InfoLevel,
}

type Config struct {
	Level    zapcore.Level
	FilePath string
}

// SetConfig replaces the configuration used by DefaultLogger. It has no effect
// once DefaultLogger has been built.
func SetConfig(c *Config) {
	confMu.Lock()
	defer confMu.Unlock()
	conf = &Config{
		Level:    c.Level,
		FilePath: c.FilePath,
	}
}

// ParseLevel falls back to info for unknown level names.
func ParseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func NewLogger(conf *Config) *zap.Logger {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	ec.CallerKey = ""

	level := zap.NewAtomicLevelAt(conf.Level)

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.AddSync(os.Stdout), level),
	}

	if conf.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   conf.FilePath,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     15,
			Compress:   true,
		}
		fc := zap.NewProductionEncoderConfig()
		fc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fc), zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...))
}

func DefaultLogger() *zap.Logger {
	defaultLoggerOnce.Do(func() {
		confMu.Lock()
		defer confMu.Unlock()
		defaultLogger = NewLogger(conf)
	})
	return defaultLogger
}

// Slog bridges a zap logger for libraries that only accept *slog.Logger.
func Slog(lg *zap.Logger) *slog.Logger {
	return slog.New(zapslog.NewHandler(lg.Core()))
}

func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return DefaultLogger()
	}
	if logger, ok := ctx.Value(contextKey{}).(*zap.Logger); ok {
		return logger
	}
	return DefaultLogger()
}
