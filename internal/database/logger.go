package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ctfwatch/ctfwatch/internal/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// Logger sends gorm output to the zap logger found in the query context.
type Logger struct {
	cfg glogger.Config
}

func NewLogger(slowThreshold time.Duration, ignoreRecordNotFoundError bool, level zapcore.Level) *Logger {
	cfg := glogger.Config{
		SlowThreshold:             slowThreshold,
		IgnoreRecordNotFoundError: ignoreRecordNotFoundError,
	}
	switch level {
	case zapcore.DebugLevel, zapcore.InfoLevel:
		cfg.LogLevel = glogger.Info
	case zapcore.WarnLevel:
		cfg.LogLevel = glogger.Warn
	case zapcore.ErrorLevel:
		cfg.LogLevel = glogger.Error
	default:
		cfg.LogLevel = glogger.Silent
	}
	return &Logger{cfg: cfg}
}

func (l *Logger) LogMode(level glogger.LogLevel) glogger.Interface {
	newlogger := *l
	newlogger.cfg.LogLevel = level
	return &newlogger
}

func (l *Logger) Info(ctx context.Context, s string, i ...interface{}) {
	if l.cfg.LogLevel >= glogger.Info {
		l.fromContext(ctx).Info(fmt.Sprintf(s, i...))
	}
}

func (l *Logger) Warn(ctx context.Context, s string, i ...interface{}) {
	if l.cfg.LogLevel >= glogger.Warn {
		l.fromContext(ctx).Warn(fmt.Sprintf(s, i...))
	}
}

func (l *Logger) Error(ctx context.Context, s string, i ...interface{}) {
	if l.cfg.LogLevel >= glogger.Error {
		l.fromContext(ctx).Error(fmt.Sprintf(s, i...))
	}
}

func (l *Logger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.LogLevel <= glogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	logger := l.fromContext(ctx)

	fields := func() []zap.Field {
		sql, rows := fc()
		return []zap.Field{
			zap.String("caller", utils.FileWithLineNum()),
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", rows),
			zap.String("sql", sql),
		}
	}

	switch {
	case err != nil && l.cfg.LogLevel >= glogger.Error && (!errors.Is(err, gorm.ErrRecordNotFound) || !l.cfg.IgnoreRecordNotFoundError):
		logger.Error("db.query_failed", append(fields(), zap.Error(err))...)
	case elapsed > l.cfg.SlowThreshold && l.cfg.SlowThreshold != 0 && l.cfg.LogLevel >= glogger.Warn:
		logger.Warn("db.slow_query", append(fields(), zap.Duration("threshold", l.cfg.SlowThreshold))...)
	case l.cfg.LogLevel == glogger.Info:
		logger.Debug("db.query", fields()...)
	}
}

func (l *Logger) fromContext(ctx context.Context) *zap.Logger {
	return logging.FromContext(ctx).WithOptions(zap.AddCallerSkip(3))
}
