package util

import (
	"context"
	"fmt"
	"os"
	"sync"
)

var (
	globalLogger LoggerInterface
	loggerMu     sync.RWMutex
)

// InitLogger installs the global logger. A failure to open the log file falls
// back to stderr so a run is never blocked by logging.
func InitLogger(logLevel, logFile string, debugToConsole bool) {
	logger, err := NewLogger(LoggerConfig{Level: logLevel, File: logFile, Console: debugToConsole})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging to stderr: %v\n", err)
		logger, _ = NewLogger(LoggerConfig{Level: logLevel, Console: true})
	}
	SetLogger(logger)
}

// SetLogger replaces the global logger, closing the previous one.
func SetLogger(logger LoggerInterface) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if globalLogger != nil {
		_ = globalLogger.Close()
	}
	globalLogger = logger
}

func current() LoggerInterface {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return globalLogger
}

// L returns the global logger, tagged with the run id in ctx when present.
// It never returns nil.
func L(ctx context.Context) LoggerInterface {
	logger := current()
	if logger == nil {
		return nopLogger{}
	}
	if ctx == nil {
		return logger
	}
	return logger.WithContext(ctx)
}

func LogInfo(msg string, fields ...Field) {
	if logger := current(); logger != nil {
		logger.Info(msg, fields...)
	}
}

func LogInfof(format string, args ...interface{}) {
	if logger := current(); logger != nil {
		logger.Infof(format, args...)
	}
}

func LogDebug(msg string, fields ...Field) {
	if logger := current(); logger != nil {
		logger.Debug(msg, fields...)
	}
}

func LogDebugf(format string, args ...interface{}) {
	if logger := current(); logger != nil {
		logger.Debugf(format, args...)
	}
}

func LogWarn(msg string, fields ...Field) {
	if logger := current(); logger != nil {
		logger.Warn(msg, fields...)
	}
}

func LogWarnf(format string, args ...interface{}) {
	if logger := current(); logger != nil {
		logger.Warnf(format, args...)
	}
}

func LogError(msg string, fields ...Field) {
	if logger := current(); logger != nil {
		logger.Error(msg, fields...)
	}
}

func LogErrorf(format string, args ...interface{}) {
	if logger := current(); logger != nil {
		logger.Errorf(format, args...)
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Info(string, ...Field) {}
func (nopLogger) Infof(string, ...interface{}) {}
func (nopLogger) Warn(string, ...Field) {}
func (nopLogger) Warnf(string, ...interface{}) {}
func (nopLogger) Error(string, ...Field) {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (n nopLogger) With(...Field) LoggerInterface { return n }
func (n nopLogger) WithContext(context.Context) LoggerInterface { return n }
func (nopLogger) SetLevel(LogLevel) {}
func (nopLogger) Close() error { return nil }
