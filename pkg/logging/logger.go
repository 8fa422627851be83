package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// reserved keys always written by the logger; fields using them are prefixed
const (
	keyTime  = "time"
	keyLevel = "level"
	keyMsg   = "msg"
)

// NewJSONLogger creates a new JSON logger
func NewJSONLogger(writer io.Writer, level Level) *JSONLogger {
	return &JSONLogger{
		out:   &lockedWriter{w: writer},
		level: &levelHolder{level: level},
	}
}

// NewDefaultLogger creates a logger that writes to stderr at INFO level
func NewDefaultLogger() *JSONLogger {
	return NewJSONLogger(os.Stderr, InfoLevel)
}

func (l *JSONLogger) log(level Level, msg string, fields ...Field) {
	if level < l.GetLevel() {
		return
	}

	entry := make(map[string]any, len(l.fields)+len(fields)+3)
	for _, f := range l.fields {
		entry[fieldKey(f.Key)] = f.Value
	}
	for _, f := range fields {
		entry[fieldKey(f.Key)] = f.Value
	}
	entry[keyTime] = time.Now().UTC().Format(time.RFC3339Nano)
	entry[keyLevel] = level.String()
	entry[keyMsg] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":"ERROR","msg":"unencodable log entry","error":%q}`, err.Error()))
	}
	data = append(data, '\n')

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	_, _ = l.out.w.Write(data)
}

func fieldKey(key string) string {
	switch key {
	case keyTime, keyLevel, keyMsg:
		return "field." + key
	default:
		return key
	}
}

// Debug logs a debug-level message
func (l *JSONLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields...)
}

// Info logs an info-level message
func (l *JSONLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields...)
}

// Warn logs a warning-level message
func (l *JSONLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields...)
}

// Error logs an error-level message
func (l *JSONLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields...)
}

// With creates a child logger with the given fields pre-set.
// The child shares the parent's output and level.
func (l *JSONLogger) With(fields ...Field) Logger {
	newFields := make([]Field, 0, len(l.fields)+len(fields))
	newFields = append(newFields, l.fields...)
	newFields = append(newFields, fields...)

	return &JSONLogger{
		out:    l.out,
		level:  l.level,
		fields: newFields,
	}
}

// SetLevel sets the minimum log level
func (l *JSONLogger) SetLevel(level Level) {
	l.level.mu.Lock()
	defer l.level.mu.Unlock()
	l.level.level = level
}

// GetLevel returns the current log level
func (l *JSONLogger) GetLevel() Level {
	l.level.mu.RLock()
	defer l.level.mu.RUnlock()
	return l.level.level
}

var (
	defaultLogger   Logger
	defaultLoggerMu sync.Mutex
)

// DefaultLogger returns the process-wide logger, honoring LOG_LEVEL on first use
func DefaultLogger() Logger {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()

	if defaultLogger == nil {
		level := InfoLevel
		if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
			level = ParseLevel(levelStr)
		}
		defaultLogger = NewJSONLogger(os.Stderr, level)
	}
	return defaultLogger
}

// SetDefaultLogger replaces the process-wide logger
func SetDefaultLogger(logger Logger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = logger
}

// StartTimer begins timing an operation
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{
		logger: logger,
		msg:    msg,
		start:  time.Now(),
		fields: fields,
	}
}

// End logs the operation at info level with its duration
func (t *TimedOperation) End(fields ...Field) {
	t.logger.Info(t.msg, t.collect(fields)...)
}

// EndError logs the operation as an error with its duration
func (t *TimedOperation) EndError(err error, fields ...Field) {
	t.logger.Error(t.msg, append(t.collect(fields), Error(err))...)
}

func (t *TimedOperation) collect(extra []Field) []Field {
	fields := make([]Field, 0, len(t.fields)+len(extra)+1)
	fields = append(fields, t.fields...)
	fields = append(fields, extra...)
	return append(fields, Latency(time.Since(t.start)))
}
