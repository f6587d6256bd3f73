// Package logging builds the zap logger shared by every component.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level, encoding and destination of log output.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	Output string // stderr, stdout or a file path
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(name) {
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

// NewLogger creates the process logger. Logs never go to stdout unless asked
// for, so machine-readable output stays clean.
func NewLogger(cfg Config) *zap.Logger {
	var (
		sink    zapcore.WriteSyncer
		openErr error
	)
	switch cfg.Output {
	case "", "stderr":
		sink = zapcore.Lock(os.Stderr)
	case "stdout":
		sink = zapcore.Lock(os.Stdout)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			sink, openErr = zapcore.Lock(os.Stderr), err
		} else {
			sink = zapcore.AddSync(f)
		}
	}

	var enc zapcore.Encoder
	switch cfg.Format {
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.RFC3339TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	default:
		enc = consoleEncoder()
	}

	level := ParseLevel(cfg.Level)
	opts := []zap.Option{zap.AddStacktrace(zapcore.FatalLevel)}
	if level == zapcore.DebugLevel {
		opts = append(opts, zap.AddCaller())
	}
	log := zap.New(zapcore.NewCore(enc, sink, level), opts...)
	if openErr != nil {
		log.Warn("failed to open log file, using stderr", zap.String("file", cfg.Output), zap.Error(openErr))
	}
	return log
}

func consoleEncoder() zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}
