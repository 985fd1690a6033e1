package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Level is the minimum severity a Logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[string]Level{
	"debug": LevelDebug,
	"info":  LevelInfo,
	"warn":  LevelWarn,
	"error": LevelError,
}

// ParseLevel maps debug|info|warn|error to a Level. Unknown names give info.
func ParseLevel(name string) Level {
	if l, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return l
	}
	return LevelInfo
}

// LevelFromVerbosity maps the CLI verbosity scale (-4 debug, 0 info, 4 warn,
// 8 error) to a Level.
func LevelFromVerbosity(v int) Level {
	switch {
	case v <= -4:
		return LevelDebug
	case v < 4:
		return LevelInfo
	case v < 8:
		return LevelWarn
	default:
		return LevelError
	}
}

// Logger wraps the standard logger with file output
type Logger struct {
	*log.Logger
	file  *os.File
	level Level
}

// NewLogger creates a new logger that writes to both console and file
func NewLogger(logDir string) (*Logger, error) {
	// Ensure log directory exists
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create log directory")
	}

	// Create log file with timestamp
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logFileName := fmt.Sprintf("LineFuzz_%s.log", timestamp)
	logFilePath := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open log file")
	}

	logger := NewWriterLogger(io.MultiWriter(os.Stdout, file))
	logger.file = file
	return logger, nil
}

// NewWriterLogger creates a logger writing only to w.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{
		Logger: log.New(w, "", log.LstdFlags),
		level:  LevelInfo,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriterLogger(io.Discard)
}

// SetLevel sets the minimum level that gets written.
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

// Level returns the minimum level that gets written.
func (l *Logger) Level() Level {
	return l.level
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// logWithCaller logs a message with caller information
func (l *Logger) logWithCaller(level Level, tag, format string, v ...interface{}) {
	if level < l.level {
		return
	}
	_, file, line, ok := runtime.Caller(2)
	if ok {
		filename := filepath.Base(file)
		message := fmt.Sprintf(format, v...)
		// 20 characters for file:line keeps columns aligned
		l.Printf("%-20s [%s] %s", fmt.Sprintf("%s:%d:", filename, line), tag, message)
	} else {
		args := append([]interface{}{"", tag}, v...)
		l.Printf("%-20s [%s] "+format, args...)
	}
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.logWithCaller(LevelInfo, "INFO", format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.logWithCaller(LevelError, "ERROR", format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.logWithCaller(LevelWarn, "WARN", format, v...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.logWithCaller(LevelDebug, "DEBUG", format, v...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.logWithCaller(LevelError, "FATAL", format, v...)
	os.Exit(1)
}
