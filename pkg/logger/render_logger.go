package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level controls which messages a RenderLogger keeps
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelError
)

// String returns the label written in front of each message
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelError:
		return "ERROR"
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel converts a config value such as "debug" into a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// RenderLogger writes leveled, timestamped render logs.
// A nil *RenderLogger is valid and discards everything.
type RenderLogger struct {
	jobID     string
	logPath   string
	out       io.Writer
	file      *os.File
	level     Level
	mu        sync.Mutex
	startTime time.Time
}

// New creates a logger writing to w, keeping messages at or above level
func New(w io.Writer, level Level) *RenderLogger {
	return &RenderLogger{
		out:       w,
		level:     level,
		startTime: time.Now(),
	}
}

// NewRenderLogger creates a log file for a job under storagePath/logs/<jobID>/log.txt
// Deletes existing log file if present and creates a new one
func NewRenderLogger(storagePath, jobID string, level Level) (*RenderLogger, error) {
	logDir := filepath.Join(storagePath, "logs", jobID)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "log.txt")

	if _, err := os.Stat(logPath); err == nil {
		if err := os.Remove(logPath); err != nil {
			return nil, fmt.Errorf("failed to delete existing log: %w", err)
		}
	}

	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	rl := &RenderLogger{
		jobID:     jobID,
		logPath:   logPath,
		out:       file,
		file:      file,
		level:     level,
		startTime: time.Now(),
	}

	rl.writeHeader()

	return rl, nil
}

// writeHeader writes the log file header
func (rl *RenderLogger) writeHeader() {
	rl.write(fmt.Sprintf(`================================================================================
LYRIC FRAME STUDIO - RENDER LOG
Job ID: %s
Started: %s
================================================================================

`, rl.jobID, rl.startTime.Format("2006-01-02 15:04:05 MST")))
}

// Enabled reports whether messages at level would be written
func (rl *RenderLogger) Enabled(level Level) bool {
	return rl != nil && level >= rl.level
}

// Phase logs the start of a processing phase
func (rl *RenderLogger) Phase(name string, description string) {
	if !rl.Enabled(LevelInfo) {
		return
	}
	msg := fmt.Sprintf("\n[%s] ========== PHASE: %s ==========\n", rl.elapsed(), name)
	if description != "" {
		msg += fmt.Sprintf("Description: %s\n", description)
	}
	rl.write(msg + "\n")
}

// Trace logs per-step detail such as every wrap candidate
func (rl *RenderLogger) Trace(format string, args ...interface{}) {
	rl.log(LevelTrace, format, args...)
}

// Debug logs a debug message with verbose details
func (rl *RenderLogger) Debug(format string, args ...interface{}) {
	rl.log(LevelDebug, format, args...)
}

// Info logs an informational message
func (rl *RenderLogger) Info(format string, args ...interface{}) {
	rl.log(LevelInfo, format, args...)
}

// Success logs a completed step at info level
func (rl *RenderLogger) Success(format string, args ...interface{}) {
	if !rl.Enabled(LevelInfo) {
		return
	}
	rl.write(fmt.Sprintf("[%s] SUCCESS: %s\n", rl.elapsed(), fmt.Sprintf(format, args...)))
}

// Error logs an error message
func (rl *RenderLogger) Error(format string, args ...interface{}) {
	rl.log(LevelError, format, args...)
}

// Property logs a key-value property at debug level
func (rl *RenderLogger) Property(key string, value interface{}) {
	if !rl.Enabled(LevelDebug) {
		return
	}
	rl.write(fmt.Sprintf("[%s] PROPERTY: %s = %v\n", rl.elapsed(), key, value))
}

func (rl *RenderLogger) log(level Level, format string, args ...interface{}) {
	if !rl.Enabled(level) {
		return
	}
	message := fmt.Sprintf(format, args...)
	rl.write(fmt.Sprintf("[%s] %s: %s\n", rl.elapsed(), level, message))
}

func (rl *RenderLogger) elapsed() time.Duration {
	return time.Since(rl.startTime).Round(time.Millisecond)
}

func (rl *RenderLogger) write(msg string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	io.WriteString(rl.out, msg)
	if rl.file != nil {
		rl.file.Sync()
	}
}

// Close writes the footer and closes the log file, if there is one
func (rl *RenderLogger) Close(success bool, finalMessage string) error {
	if rl == nil || rl.file == nil {
		return nil
	}

	status := "COMPLETED SUCCESSFULLY"
	if !success {
		status = "FAILED"
	}

	rl.write(fmt.Sprintf(`
================================================================================
RENDER %s
Duration: %s
Completed: %s
%s
================================================================================
`, status, rl.elapsed(), time.Now().Format("2006-01-02 15:04:05 MST"), finalMessage))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.file.Close()
}

// GetLogPath returns the path to the log file, empty for writer-backed loggers
func (rl *RenderLogger) GetLogPath() string {
	if rl == nil {
		return ""
	}
	return rl.logPath
}
