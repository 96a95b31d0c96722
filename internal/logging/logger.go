package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const FileName = "onionwatch.log"

type Options struct {
	Dir     string
	Level   string // debug, info, warn or error; empty means info
	Console bool   // also write human-readable lines to stderr
}

// New builds a JSON logger writing to a rotated file under opts.Dir.
func New(opts Options) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		lvl = l
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, FileName),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, lvl)

	if opts.Console {
		ccfg := zap.NewDevelopmentEncoderConfig()
		ccfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		console := zapcore.NewCore(zapcore.NewConsoleEncoder(ccfg), zapcore.Lock(os.Stderr), lvl)
		core = zapcore.NewTee(core, console)
	}
	return zap.New(core), nil
}
