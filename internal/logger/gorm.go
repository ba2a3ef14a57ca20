package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

type gormZapLogger struct {
	logger *zap.Logger
	level  gormlogger.LogLevel
}

// GormLevel maps the logger's zap level onto gorm's coarser levels.
func GormLevel(level Level) gormlogger.LogLevel {
	switch level {
	case zapcore.DebugLevel:
		return gormlogger.Info
	case zapcore.InfoLevel, zapcore.WarnLevel:
		return gormlogger.Warn
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}

// Gorm returns a gorm logger that writes SQL traces through l.
func (l *Logger) Gorm() gormlogger.Interface {
	return &gormZapLogger{
		logger: l.base.WithOptions(zap.AddCallerSkip(2)),
		level:  GormLevel(l.Level()),
	}
}

func (g *gormZapLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormZapLogger{
		logger: g.logger,
		level:  level,
	}
}

func (g *gormZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Info {
		g.logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (g *gormZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (g *gormZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Error {
		g.logger.Error(fmt.Sprintf(msg, data...))
	}
}

func (g *gormZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("duration", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	switch {
	// Duplicate-key errors are part of normal short-code allocation.
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && g.level >= gormlogger.Error:
		g.logger.Debug("gorm query failed", append(fields, zap.Error(err))...)
	case elapsed > slowQueryThreshold && g.level >= gormlogger.Warn:
		g.logger.Warn("gorm slow query", fields...)
	case g.level >= gormlogger.Info:
		g.logger.Debug("gorm query", fields...)
	}
}
