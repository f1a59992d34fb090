package logger

import (
	"log"
	"os"
	"strings"
)

// LogLevel constants, lowest-to-highest verbosity.
const (
	LogLevelError = "error"
	LogLevelWarn  = "warn"
	LogLevelInfo  = "info"
	LogLevelDebug = "debug"
	LogLevelTrace = "trace"
)

// LoggingConfig is the host process's logging configuration, loaded from
// the config file's "logging" section.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	MaxSize int    `yaml:"max_size"`
	MaxAge  int    `yaml:"max_age"`
}

// GlobalLogging holds the process-wide logging configuration consulted by
// the free LogInfo/LogWarn/LogError/LogDebug/LogTrace helpers. main sets it
// once at startup via NewHostLogger.
var GlobalLogging *LoggingConfig

// HostLogger wraps the standard logger with a verbosity level, for
// subsystems that want a logger instance rather than the package-global
// helpers.
type HostLogger struct {
	*log.Logger
	level string
}

// NewHostLogger builds a HostLogger from config and installs config as the
// global logging configuration, so the package-level helpers start honoring
// the requested level immediately.
func NewHostLogger(config *LoggingConfig) *HostLogger {
	level := strings.ToLower(config.Level)
	if level == "" {
		level = LogLevelInfo
	}

	var output *os.File
	if config.File != "" {
		var err error
		output, err = os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			log.Printf("failed to open log file %s: %v", config.File, err)
			output = os.Stdout
		}
	} else {
		output = os.Stdout
	}

	hl := &HostLogger{
		Logger: log.New(output, "", log.LstdFlags|log.Lshortfile),
		level:  level,
	}

	GlobalLogging = config

	return hl
}

func shouldLog(currentLevel, messageLevel string) bool {
	levels := []string{LogLevelError, LogLevelWarn, LogLevelInfo, LogLevelDebug, LogLevelTrace}

	currentIndex := -1
	messageIndex := -1

	for i, level := range levels {
		if level == currentLevel {
			currentIndex = i
		}
		if level == messageLevel {
			messageIndex = i
		}
	}

	if currentIndex == -1 || messageIndex == -1 {
		return true
	}

	return messageIndex <= currentIndex
}

// Error logs an error-level message on this logger instance.
func (l *HostLogger) Error(format string, args ...interface{}) {
	if shouldLog(l.level, LogLevelError) {
		l.Printf("❌ "+format, args...)
	}
}

// Warn logs a warning-level message on this logger instance.
func (l *HostLogger) Warn(format string, args ...interface{}) {
	if shouldLog(l.level, LogLevelWarn) {
		l.Printf("⚠️ "+format, args...)
	}
}

// Info logs an info-level message on this logger instance.
func (l *HostLogger) Info(format string, args ...interface{}) {
	if shouldLog(l.level, LogLevelInfo) {
		l.Printf("ℹ️ "+format, args...)
	}
}

// Debug logs a debug-level message on this logger instance.
func (l *HostLogger) Debug(format string, args ...interface{}) {
	if shouldLog(l.level, LogLevelDebug) {
		l.Printf("🔧 "+format, args...)
	}
}

// Trace logs a trace-level message on this logger instance.
func (l *HostLogger) Trace(format string, args ...interface{}) {
	if shouldLog(l.level, LogLevelTrace) {
		l.Printf("🔍 "+format, args...)
	}
}

// LogStartup logs a message that must be visible regardless of the
// configured level, for the handful of boot-time lines the operator always
// wants (listener addresses, transport opened, etc).
func LogStartup(format string, args ...interface{}) {
	log.Printf("🔧 "+format, args...)
}

// LogError logs an error-level message using the global logging config.
func LogError(format string, args ...interface{}) {
	if GlobalLogging != nil && shouldLog(strings.ToLower(GlobalLogging.Level), LogLevelError) {
		log.Printf("❌ "+format, args...)
	}
}

// LogWarn logs a warning-level message using the global logging config.
func LogWarn(format string, args ...interface{}) {
	if GlobalLogging != nil && shouldLog(strings.ToLower(GlobalLogging.Level), LogLevelWarn) {
		log.Printf("⚠️ "+format, args...)
	}
}

// LogInfo logs an info-level message using the global logging config.
func LogInfo(format string, args ...interface{}) {
	if GlobalLogging != nil && shouldLog(strings.ToLower(GlobalLogging.Level), LogLevelInfo) {
		log.Printf("ℹ️ "+format, args...)
	}
}

// LogDebug logs a debug-level message using the global logging config.
func LogDebug(format string, args ...interface{}) {
	if GlobalLogging != nil && shouldLog(strings.ToLower(GlobalLogging.Level), LogLevelDebug) {
		log.Printf("🔧 "+format, args...)
	}
}

// LogTrace logs a trace-level message using the global logging config.
func LogTrace(format string, args ...interface{}) {
	if GlobalLogging != nil && shouldLog(strings.ToLower(GlobalLogging.Level), LogLevelTrace) {
		log.Printf("🔍 "+format, args...)
	}
}

// IsDebugEnabled reports whether the global logging config allows debug
// messages through.
func IsDebugEnabled() bool {
	return GlobalLogging != nil && shouldLog(strings.ToLower(GlobalLogging.Level), LogLevelDebug)
}

// IsTraceEnabled reports whether the global logging config allows trace
// messages through.
func IsTraceEnabled() bool {
	return GlobalLogging != nil && shouldLog(strings.ToLower(GlobalLogging.Level), LogLevelTrace)
}
