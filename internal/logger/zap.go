package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.Mutex
	logger *zap.SugaredLogger
)

type Logger struct {
	*zap.SugaredLogger
}

type Config struct {
	Level       string
	Development bool
	File        string
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
}

// Configure replaces the process logger. Without a call to Configure,
// GetLogger falls back to a zap development logger.
func Configure(cfg Config) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	if cfg.Development {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	out := zapcore.AddSync(os.Stdout)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return err
		}

		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = zapcore.NewMultiWriteSyncer(out, zapcore.AddSync(rotating))
	}

	core := zapcore.NewCore(encoder, out, level)
	zaplog := zap.New(core, zap.AddCaller())

	mu.Lock()
	logger = zaplog.Sugar()
	mu.Unlock()

	return nil
}

func GetLogger() Logger {
	mu.Lock()
	defer mu.Unlock()

	if logger == nil {
		zaplog, _ := zap.NewDevelopment()
		logger = zaplog.Sugar()
	}

	return Logger{SugaredLogger: logger}
}
