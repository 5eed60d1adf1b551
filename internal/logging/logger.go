package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Getenv("DEBUG") == "true")
)

// newLogger writes to stderr only; stdout carries JSON-RPC.
func newLogger(debug bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}

// Init replaces the process logger. Call once from main after config load.
func Init(debug bool) {
	SetLogger(newLogger(debug))
}

// SetLogger installs l as the process logger.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Logger returns the process logger.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Logger().Sync()
}

// Info logs an informational message (always shown)
func Info(subsystem, format string, args ...any) {
	Logger().Info(fmt.Sprintf(format, args...), zap.String("subsystem", subsystem))
}

// Debug logs a debug message (only shown when debug is enabled)
func Debug(subsystem, format string, args ...any) {
	l := Logger()
	if l.Core().Enabled(zapcore.DebugLevel) {
		l.Debug(fmt.Sprintf(format, args...), zap.String("subsystem", subsystem))
	}
}

// Truncate truncates a string to maxLen and adds ellipsis
func Truncate(s string, maxLen int) string {
	// Replace newlines with spaces for one-line logs
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
