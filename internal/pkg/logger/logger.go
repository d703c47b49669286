// Package logger provides structured JSON logging with PII redaction.
// Lead emails flow through nearly every log line in this codebase, so
// redaction is on by default.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// ParseLevel converts a config string ("debug", "info", ...) to a Level.
// Unknown strings default to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger emits structured JSON log entries for one component.
type Logger struct {
	component string
	level     Level
	redactPII bool
	out       io.Writer
	mu        *sync.Mutex
}

var (
	defaultMu    sync.Mutex
	defaultLevel = INFO
)

// SetLevel sets the minimum level for loggers created after the call.
func SetLevel(l Level) { defaultLevel = l }

// New returns a logger tagged with the given component name.
func New(component string) *Logger {
	return &Logger{
		component: component,
		level:     defaultLevel,
		redactPII: true,
		out:       os.Stderr,
		mu:        &defaultMu,
	}
}

// WithRedaction returns a copy of the logger with PII redaction toggled.
func (l *Logger) WithRedaction(on bool) *Logger {
	c := *l
	c.redactPII = on
	return &c
}

// Debug emits a DEBUG-level entry with optional key/value pairs.
func (l *Logger) Debug(msg string, fields ...any) { l.log(DEBUG, msg, fields...) }

// Info emits an INFO-level entry with optional key/value pairs.
func (l *Logger) Info(msg string, fields ...any) { l.log(INFO, msg, fields...) }

// Warn emits a WARN-level entry with optional key/value pairs.
func (l *Logger) Warn(msg string, fields ...any) { l.log(WARN, msg, fields...) }

// Error emits an ERROR-level entry with optional key/value pairs.
func (l *Logger) Error(msg string, fields ...any) { l.log(ERROR, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...any) {
	if level < l.level {
		return
	}

	entry := map[string]any{
		"time":      time.Now().UTC().Format(time.RFC3339),
		"level":     levelNames[level],
		"component": l.component,
		"msg":       msg,
	}

	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		val := fmt.Sprintf("%v", fields[i+1])
		if l.redactPII {
			val = redactValue(key, val)
		}
		entry[key] = val
	}

	data, _ := json.Marshal(entry)
	l.mu.Lock()
	fmt.Fprintln(l.out, string(data))
	l.mu.Unlock()
}
