package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is a leveled zerolog wrapper.
type Logger struct {
	zl      zerolog.Logger
	file    *os.File
	enabled bool
}

var globalLogger *Logger

// Init initializes the logger. Console output goes to stderr in human
// readable form, file output is JSON lines.
func Init(enabled bool, levelStr, logFile string, console bool) error {
	if !enabled {
		globalLogger = &Logger{zl: zerolog.Nop(), enabled: false}
		return nil
	}

	var writers []io.Writer
	var file *os.File

	if logFile != "" {
		dir := filepath.Dir(logFile)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}

	if console || len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	}

	Close()
	globalLogger = &Logger{
		zl:      zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(parseLevel(levelStr)).With().Timestamp().Logger(),
		file:    file,
		enabled: true,
	}
	return nil
}

// Close releases the log file, if any.
func Close() error {
	if globalLogger == nil || globalLogger.file == nil {
		return nil
	}
	err := globalLogger.file.Close()
	globalLogger.file = nil
	return err
}

// Component returns a child logger tagged with a component name.
func Component(name string) zerolog.Logger {
	if globalLogger == nil || !globalLogger.enabled {
		return zerolog.Nop()
	}
	return globalLogger.zl.With().Str("component", name).Logger()
}

func parseLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func active() bool {
	return globalLogger != nil && globalLogger.enabled
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) {
	if !active() {
		return
	}
	globalLogger.zl.Debug().Msgf(format, args...)
}

// Infof logs an info message.
func Infof(format string, args ...interface{}) {
	if !active() {
		return
	}
	globalLogger.zl.Info().Msgf(format, args...)
}

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) {
	if !active() {
		return
	}
	globalLogger.zl.Warn().Msgf(format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	if !active() {
		return
	}
	globalLogger.zl.Error().Msgf(format, args...)
}
