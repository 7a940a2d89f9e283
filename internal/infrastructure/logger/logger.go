package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	*zap.SugaredLogger
	closer io.Closer
}

// LevelFromNumeric maps the 10/20/30/40/50 severities accepted on the command
// line onto zap levels. Unknown values fall back to Info.
func LevelFromNumeric(n int) zapcore.Level {
	switch n {
	case 10:
		return zapcore.DebugLevel
	case 20:
		return zapcore.InfoLevel
	case 30:
		return zapcore.WarnLevel
	case 40:
		return zapcore.ErrorLevel
	case 50:
		return zapcore.DPanicLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a logger writing to stdout for the "console" handler or to a
// rotated logFile for the "file" handler.
func New(level zapcore.Level, handler, logFile string) (*Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var (
		core   zapcore.Core
		closer io.Closer
	)

	switch handler {
	case "", "console":
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level)

	case "file":
		if logFile == "" {
			return nil, fmt.Errorf("log file is required for the file handler")
		}
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(rotator), level)
		closer = rotator

	default:
		return nil, fmt.Errorf("unknown log handler: %s", handler)
	}

	zapLogger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return &Logger{SugaredLogger: zapLogger.Sugar(), closer: closer}, nil
}

func (l *Logger) Close() {
	_ = l.Sync()
	if l.closer != nil {
		_ = l.closer.Close()
	}
}
