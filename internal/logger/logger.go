package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process-wide logger. It discards everything until Initialize runs.
var Log = zap.NewNop()

// Initialize tees a readable console core with a rotated JSON file core.
// logLevel is one of debug, info, warn, error (default info); logFile defaults
// to projecty.log. The file's directory is created, and an unwritable file
// is an error.
func Initialize(logLevel string, logFile string) error {
	if logFile == "" {
		logFile = "projecty.log"
	}
	if logLevel == "" {
		logLevel = "info"
	}
	level := parseLogLevel(logLevel)

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	_ = f.Close()

	rotating := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     7, // days
		Compress:   true,
	})

	fileConfig := zap.NewProductionEncoderConfig()
	fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), rotating, level),
	)

	Log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	Log.Info("Logger initialized", zap.String("level", logLevel), zap.String("file", logFile))
	return nil
}

// Close flushes buffered entries
func Close() error {
	return Log.Sync()
}

func parseLogLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// WarnWithFields logs msg at warn level, attaching err when present
func WarnWithFields(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Log.Warn(msg, fields...)
}

// ErrorWithFields logs msg at error level, attaching err when present
func ErrorWithFields(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Log.Error(msg, fields...)
}

// Field helpers

func WithRequestID(id string) zap.Field {
	return zap.String("request_id", id)
}

func WithUserID(id string) zap.Field {
	return zap.String("user_id", id)
}

func WithPostID(id string) zap.Field {
	return zap.String("post_id", id)
}

func WithConversationID(id string) zap.Field {
	return zap.String("conversation_id", id)
}

func WithIP(ip string) zap.Field {
	return zap.String("ip", ip)
}

func WithStatus(status int) zap.Field {
	return zap.Int("status", status)
}

func WithDuration(d time.Duration) zap.Field {
	return zap.Duration("duration", d)
}
