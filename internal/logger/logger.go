// Package logger is the process-wide zap logger. It writes JSON to stdout and,
// when LOG_FILE or LOG_DIR is set, to a rotated file as well.
package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	log         = zap.NewNop()
	atomicLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init configures the global logger from the environment:
// LOG_LEVEL, LOG_FILE, LOG_DIR, LOG_MAX_SIZE_MB, LOG_MAX_BACKUPS, LOG_MAX_DAYS, LOG_COMPRESS.
func Init() {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.MessageKey = "msg"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	SetLevel(os.Getenv("LOG_LEVEL"))

	enc := zapcore.NewJSONEncoder(encoderConfig)
	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stdout), atomicLevel),
	}

	logFile := strings.TrimSpace(os.Getenv("LOG_FILE"))
	if dir := strings.TrimSpace(os.Getenv("LOG_DIR")); logFile == "" && dir != "" {
		logFile = filepath.Join(dir, "ledger.log")
	}
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "warning: log directory unavailable, using stdout only: %v\n", err)
		} else {
			lw := &lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    envInt("LOG_MAX_SIZE_MB", 100),
				MaxBackups: envInt("LOG_MAX_BACKUPS", 7),
				MaxAge:     envInt("LOG_MAX_DAYS", 14),
				Compress:   !strings.EqualFold(os.Getenv("LOG_COMPRESS"), "false"),
			}
			cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(lw), atomicLevel))
		}
	}

	log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

// Replace swaps the global logger, returning a function that restores the
// previous one. Tests use it with zaptest/observer.
func Replace(l *zap.Logger) func() {
	prev := log
	log = l.WithOptions(zap.AddCallerSkip(1))
	return func() { log = prev }
}

// L returns the underlying logger for packages that need a *zap.Logger.
func L() *zap.Logger { return log }

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return n
	}
	return def
}

// SetLevel adjusts the level at runtime. Unknown names mean info.
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		atomicLevel.SetLevel(zapcore.DebugLevel)
	case "warn", "warning":
		atomicLevel.SetLevel(zapcore.WarnLevel)
	case "error":
		atomicLevel.SetLevel(zapcore.ErrorLevel)
	default:
		atomicLevel.SetLevel(zapcore.InfoLevel)
	}
}

func Info(msg string, fields ...zap.Field)  { log.Info(msg, fields...) }
func Error(msg string, fields ...zap.Field) { log.Error(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { log.Warn(msg, fields...) }
func Debug(msg string, fields ...zap.Field) { log.Debug(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { log.Fatal(msg, fields...) }
func Sync()                                 { _ = log.Sync() }

// withTrace tags the entry with the chi request id when there is one.
func withTrace(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}
	if id := middleware.GetReqID(ctx); id != "" {
		fields = append(fields, zap.String("trace_id", id))
	}
	return fields
}

func InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Info(msg, withTrace(ctx, fields)...)
}
func ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Error(msg, withTrace(ctx, fields)...)
}
func WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Warn(msg, withTrace(ctx, fields)...)
}
func DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Debug(msg, withTrace(ctx, fields)...)
}
