// Package logging builds the zap loggers handed to every component.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level maps a -v count to a log level: 0 warn, 1 info, 2 and above debug
func Level(verbosity int) zapcore.Level {
	switch {
	case verbosity <= 0:
		return zapcore.WarnLevel
	case verbosity == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// New returns a console logger writing to stderr
func New(verbosity int) *zap.Logger {
	return NewWithWriter(os.Stderr, verbosity)
}

// NewWithWriter returns a console logger writing to w
func NewWithWriter(w io.Writer, verbosity int) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), Level(verbosity))

	opts := []zap.Option{}
	if verbosity >= 2 {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(core, opts...)
}

// Nop returns a logger that discards everything
func Nop() *zap.Logger {
	return zap.NewNop()
}

// OrNop returns l, or a no-op logger when l is nil
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
