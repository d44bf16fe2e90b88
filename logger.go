package cstruct

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	logger    atomic.Pointer[zap.Logger]
	nopLogger = zap.NewNop()
)

// Logger returns the package logger.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return nopLogger
}

// SetLogger configures the package logger. It may be called at any time,
// including while other goroutines declare or materialize structures.
// A nil logger restores the no-op default.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
