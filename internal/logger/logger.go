// Package logger wraps zap. Every line reads "[YYYY-MM-DD HH:MM:SS] event {fields}"
// on stdout and, when a file is configured, in the append-only log file.
package logger

import "strings"

// Log levels accepted by log.level and --log-level.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Console returns a stdout-only logger. main uses it until the config,
// and with it the log file path, is known.
func Console(level string) *Logger {
	return newZapLogger(level)
}

// KnownLevel reports whether level is one of the levels above.
// Anything else logs at debug.
func KnownLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
		return true
	}
	return false
}
