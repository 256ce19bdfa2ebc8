package util

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// LogFormat represents the output format
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// Output represents a log output destination
type Output interface {
	Write(entry LogEntry) error
	Close() error
}

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// SortedFields returns the entry fields as key=value pairs ordered by key.
func (e LogEntry) SortedFields() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf("%s=%v", k, e.Fields[k])
	}
	return out
}

// LoggerInterface defines the public interface for logging
type LoggerInterface interface {
	Debug(msg string, fields ...Field)
	Debugf(format string, args ...interface{})
	Info(msg string, fields ...Field)
	Infof(format string, args ...interface{})
	Warn(msg string, fields ...Field)
	Warnf(format string, args ...interface{})
	Error(msg string, fields ...Field)
	Errorf(format string, args ...interface{})
	With(fields ...Field) LoggerInterface
	WithContext(ctx context.Context) LoggerInterface
	SetLevel(level LogLevel)
	Close() error
}

// LoggerConfig selects the level, outputs and encoding of a logger.
type LoggerConfig struct {
	Level   string
	File    string
	Console bool
	Format  LogFormat
}

// Logger provides structured logging functionality
type Logger struct {
	mu      *sync.RWMutex
	level   *LogLevel
	outputs []Output
	fields  map[string]interface{}
}

// NewLogger creates a logger writing to the configured file and, in debug
// mode, to stderr. At least one destination is required.
func NewLogger(cfg LoggerConfig) (*Logger, error) {
	if cfg.File == "" && !cfg.Console {
		return nil, fmt.Errorf("logger needs a file or console output")
	}
	if cfg.Format == "" {
		cfg.Format = FormatText
	}

	level := ParseLogLevel(cfg.Level)
	logger := &Logger{
		mu:     &sync.RWMutex{},
		level:  &level,
		fields: make(map[string]interface{}),
	}

	if cfg.Console {
		logger.outputs = append(logger.outputs, NewConsoleOutput(os.Stderr, cfg.Format))
	}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		out, err := NewFileOutput(cfg.File, cfg.Format)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", cfg.File, err)
		}
		logger.outputs = append(logger.outputs, out)
	}
	return logger, nil
}

// NewLoggerWithOutputs builds a logger over explicit outputs.
func NewLoggerWithOutputs(level string, outputs ...Output) *Logger {
	lvl := ParseLogLevel(level)
	return &Logger{
		mu:      &sync.RWMutex{},
		level:   &lvl,
		outputs: outputs,
		fields:  make(map[string]interface{}),
	}
}

// ParseLogLevel parses a log level string, defaulting to info.
func ParseLogLevel(levelStr string) LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l *Logger) log(level LogLevel, msg string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if *l.level > level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level.String(),
		Message:   msg,
		Fields:    make(map[string]interface{}, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		entry.Fields[k] = v
	}
	for _, field := range fields {
		entry.Fields[field.Key] = field.Value
	}

	for _, output := range l.outputs {
		if err := output.Write(entry); err != nil {
			log.Printf("Failed to write log entry: %v", err)
		}
	}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields...) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(msg string, fields ...Field) { l.log(LevelInfo, msg, fields...) }

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(msg string, fields ...Field) { l.log(LevelWarn, msg, fields...) }

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, fmt.Sprintf(format, args...))
}

func (l *Logger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields...) }

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(LevelError, fmt.Sprintf(format, args...))
}

// With returns a child logger carrying additional fields. The child shares
// level and outputs with its parent.
func (l *Logger) With(fields ...Field) LoggerInterface {
	l.mu.RLock()
	defer l.mu.RUnlock()

	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, field := range fields {
		merged[field.Key] = field.Value
	}
	return &Logger{mu: l.mu, level: l.level, outputs: l.outputs, fields: merged}
}

type contextKey string

const runIDKey contextKey = "run_id"

// ContextWithRunID tags ctx with the id of the current render run.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext returns the run id stored in ctx, if any.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// WithContext returns a logger tagged with the run id found in ctx.
func (l *Logger) WithContext(ctx context.Context) LoggerInterface {
	if id, ok := RunIDFromContext(ctx); ok {
		return l.With(Field{Key: string(runIDKey), Value: id})
	}
	return l.With()
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.level = level
}

// Close releases every output.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var first error
	for _, output := range l.outputs {
		if err := output.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
