package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
	file *os.File
}

// defaultZapLevel defines the fallback log level when an unknown level string is provided.
const defaultZapLevel = zapcore.DebugLevel

// logFilePerm is used when the append-only log file has to be created.
const logFilePerm = 0o644

// timestampLayout renders "[YYYY-MM-DD HH:MM:SS]".
const timestampLayout = "[2006-01-02 15:04:05]"

// toZapLevel converts a textual level to zapcore.Level using known level constants.
func toZapLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return defaultZapLevel
	}
}

func encodeTimestamp(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Local().Format(timestampLayout))
}

// newEncoder builds the console encoder shared by stdout and the log file:
// "[ts] message {fields}". Levels are left out of the line.
func newEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.LevelKey = ""
	cfg.CallerKey = ""
	cfg.StacktraceKey = ""
	cfg.EncodeTime = encodeTimestamp
	cfg.ConsoleSeparator = " "
	return zapcore.NewConsoleEncoder(cfg)
}

// newConsoleCore builds a zapcore.Core targeting stdout.
func newConsoleCore(level zapcore.Level) zapcore.Core {
	ws := zapcore.Lock(os.Stdout) // thread-safe writer
	return zapcore.NewCore(newEncoder(), ws, zap.NewAtomicLevelAt(level))
}

// newZapLogger constructs a sugared zap logger with the provided level string.
func newZapLogger(levelStr string) *Logger {
	core := newConsoleCore(toZapLevel(levelStr))
	return &Logger{
		SugaredLogger: zap.New(core).Sugar(),
	}
}

// New builds a logger that mirrors every line to stdout and to the append-only
// file at path. An empty path gives a stdout-only logger. If the file cannot be
// opened the stdout logger is still returned together with the error.
func New(levelStr, path string) (*Logger, error) {
	level := toZapLevel(levelStr)
	if path == "" {
		return newZapLogger(levelStr), nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFilePerm)
	if err != nil {
		return newZapLogger(levelStr), fmt.Errorf("open log file %q: %w", path, err)
	}

	fileCore := zapcore.NewCore(newEncoder(), zapcore.Lock(f), zap.NewAtomicLevelAt(level))
	core := zapcore.NewTee(newConsoleCore(level), fileCore)
	return &Logger{
		SugaredLogger: zap.New(core).Sugar(),
		file:          f,
	}, nil
}

// Close flushes buffered entries and releases the log file, if any.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	_ = l.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}
