// Package logger provides the shared zap logger used for diagnostic output.
// User-facing output goes to stdout via fmt; the logger carries debug detail.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a console logger. With debug=false only warnings and errors
// are emitted so normal CLI output stays clean.
func New(debug bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	level := zap.WarnLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	return zap.New(core)
}

// Nop returns a logger that discards everything. Used as a default so
// packages never need to nil-check their logger.
func Nop() *zap.Logger { return zap.NewNop() }
