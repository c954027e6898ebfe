package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger writes component-tagged debug logs for flagpin.
// All loggers of one process share a session-specific file in
// ~/.flagpin/logs/ (or the directory passed to SetDirectory).
//
// Methods are safe on a nil *Logger, which discards everything. Engine
// components accept a nil logger so tests do not need a log directory.
type Logger struct {
	sessionID string
	component string
	file      *os.File
	logger    *log.Logger
	mu        sync.Mutex
	logPath   string
	closeOnce sync.Once
}

var (
	// Global session ID for the current execution
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir string

	// initOnce ensures directory initialization happens once
	initOnce sync.Once

	// initErr stores any error from directory initialization
	initErr error
)

// getSessionID returns or creates the session ID for this execution
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// SetDirectory overrides the log directory. It must be called before the
// first NewLogger call to take effect.
func SetDirectory(dir string) {
	if dir != "" {
		logDir = dir
	}
}

// initLogDirectory ensures the log directory exists
func initLogDirectory() error {
	initOnce.Do(func() {
		if logDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				initErr = fmt.Errorf("failed to get home directory: %w", err)
				return
			}
			logDir = filepath.Join(homeDir, ".flagpin", "logs")
		}

		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
	})
	return initErr
}

// NewLogger creates a logger for a component writing to
// <log dir>/<session-id>-flagpin.log.
//
// If the log file cannot be opened it returns a logger that writes to stderr
// together with the error, so callers can warn and keep going.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	sessID := getSessionID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-flagpin.log", sessID))

	// Append mode: every component shares the same file.
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return newFallbackLogger(component, fmt.Errorf("failed to open log file: %w", err)), err
	}

	return &Logger{
		sessionID: sessID,
		component: component,
		file:      file,
		logger:    log.New(file, "", 0),
		logPath:   logPath,
	}, nil
}

// NewWriterLogger creates a logger that writes to w instead of a file.
func NewWriterLogger(component string, w io.Writer) *Logger {
	return &Logger{
		sessionID: getSessionID(),
		component: component,
		logger:    log.New(w, "", 0),
	}
}

// newFallbackLogger creates a logger that writes to stderr when file logging fails
func newFallbackLogger(component string, err error) *Logger {
	logger := log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags|log.Lshortfile)
	logger.Printf("WARNING: Failed to initialize file logging: %v", err)
	logger.Printf("Falling back to stderr logging")

	return &Logger{
		sessionID: getSessionID(),
		component: component,
		logger:    logger,
	}
}

// With returns a logger for a sub-component sharing the same output.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{
		sessionID: l.sessionID,
		component: l.component + "." + component,
		logger:    l.logger,
		logPath:   l.logPath,
	}
}

// formatLogEntry creates a structured log entry with timestamp, component, and level
func (l *Logger) formatLogEntry(level, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	return fmt.Sprintf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)
}

func (l *Logger) write(level, format string, v ...interface{}) {
	if l == nil || l.logger == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Println(l.formatLogEntry(level, fmt.Sprintf(format, v...)))
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) { l.write("DEBUG", format, v...) }

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) { l.write("INFO", format, v...) }

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) { l.write("WARN", format, v...) }

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) { l.write("ERROR", format, v...) }

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// LogPath returns the path to the log file, or "" when not file-backed.
func (l *Logger) LogPath() string {
	if l == nil {
		return ""
	}
	return l.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// GetLogDirectory returns the directory where logs are stored
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}
