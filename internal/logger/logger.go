package logger

import (
	"log"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level = zapcore.Level

const (
	DEBUG = zapcore.DebugLevel
	INFO  = zapcore.InfoLevel
	WARN  = zapcore.WarnLevel
	ERROR = zapcore.ErrorLevel
	FATAL = zapcore.FatalLevel
)

// Logger is a printf-style facade over a zap SugaredLogger, scoped to one service.
type Logger struct {
	sugar   *zap.SugaredLogger
	base    *zap.Logger
	level   zap.AtomicLevel
	service string
}

// New builds a logger for service from LOG_LEVEL, LOG_FORMAT, LOG_COLORS and LOG_FILE.
func New(service string) *Logger {
	level := zap.NewAtomicLevelAt(parseLevel(os.Getenv("LOG_LEVEL")))

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "service",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     bracketNameEncoder,
	}

	consoleCfg := encCfg
	if os.Getenv("LOG_COLORS") != "false" {
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var consoleEnc zapcore.Encoder
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		consoleEnc = zapcore.NewJSONEncoder(encCfg)
	} else {
		consoleEnc = zapcore.NewConsoleEncoder(consoleCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.AddSync(os.Stdout), level),
	}

	if path := os.Getenv("LOG_FILE"); path != "" {
		fileCfg := encCfg
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    envInt("LOG_MAX_SIZE_MB", 10),
			MaxBackups: envInt("LOG_MAX_BACKUPS", 5),
			MaxAge:     envInt("LOG_MAX_AGE_DAYS", 7),
			Compress:   true,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(rotator), level))
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Named(service)

	return &Logger{
		sugar:   base.Sugar(),
		base:    base,
		level:   level,
		service: service,
	}
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	base := zap.NewNop()
	return &Logger{
		sugar: base.Sugar(),
		base:  base,
		level: zap.NewAtomicLevelAt(FATAL),
	}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.sugar.Fatalf(format, args...)
}

// With returns a child logger carrying structured key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	child := l.sugar.With(keysAndValues...)
	return &Logger{
		sugar:   child,
		base:    child.Desugar(),
		level:   l.level,
		service: l.service,
	}
}

func (l *Logger) Level() Level {
	return l.level.Level()
}

func (l *Logger) Zap() *zap.Logger {
	return l.base
}

func (l *Logger) Sync() error {
	return l.base.Sync()
}

// SetStdLog redirects standard log package to use this logger
func (l *Logger) SetStdLog() {
	log.SetOutput(&stdLogWriter{logger: l})
	log.SetFlags(0)
}

type stdLogWriter struct {
	logger *Logger
}

func (w *stdLogWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	w.logger.Info("%s", msg)
	return len(p), nil
}

func parseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

func bracketNameEncoder(name string, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + name + "]")
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
