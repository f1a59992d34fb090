package logger

// EventLogger is the interface pkg/host depends on for reporting transport
// lifecycle events (open/close/switch, connection loss)
// without binding directly to the package-global log functions — tests can
// substitute RecordingLogger to assert on what was logged.
type EventLogger interface {
	LogInfo(format string, args ...interface{})
	LogWarn(format string, args ...interface{})
	LogError(format string, args ...interface{})
	LogDebug(format string, args ...interface{})
}

// GlobalEventLogger implements EventLogger by forwarding to the package's
// global LogInfo/LogWarn/LogError/LogDebug functions. This is the default
// wired into pkg/host.Host.
type GlobalEventLogger struct{}

// NewGlobalEventLogger returns the default EventLogger, backed by the
// package-global logging functions and GlobalLogging configuration.
func NewGlobalEventLogger() EventLogger {
	return &GlobalEventLogger{}
}

// LogInfo forwards to the package-level LogInfo.
func (l *GlobalEventLogger) LogInfo(format string, args ...interface{}) {
	LogInfo(format, args...)
}

// LogWarn forwards to the package-level LogWarn.
func (l *GlobalEventLogger) LogWarn(format string, args ...interface{}) {
	LogWarn(format, args...)
}

// LogError forwards to the package-level LogError.
func (l *GlobalEventLogger) LogError(format string, args ...interface{}) {
	LogError(format, args...)
}

// LogDebug forwards to the package-level LogDebug.
func (l *GlobalEventLogger) LogDebug(format string, args ...interface{}) {
	LogDebug(format, args...)
}

// RecordingLogger is an EventLogger for tests: it appends every message to
// the matching slice instead of emitting anything, so a test can assert on
// what pkg/host logged without capturing stdout.
type RecordingLogger struct {
	InfoMessages  []string
	WarnMessages  []string
	ErrorMessages []string
	DebugMessages []string
}

// NewRecordingLogger returns an empty RecordingLogger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{
		InfoMessages:  make([]string, 0),
		WarnMessages:  make([]string, 0),
		ErrorMessages: make([]string, 0),
		DebugMessages: make([]string, 0),
	}
}

// LogInfo records format as an info message.
func (l *RecordingLogger) LogInfo(format string, args ...interface{}) {
	l.InfoMessages = append(l.InfoMessages, format)
}

// LogWarn records format as a warning message.
func (l *RecordingLogger) LogWarn(format string, args ...interface{}) {
	l.WarnMessages = append(l.WarnMessages, format)
}

// LogError records format as an error message.
func (l *RecordingLogger) LogError(format string, args ...interface{}) {
	l.ErrorMessages = append(l.ErrorMessages, format)
}

// LogDebug records format as a debug message.
func (l *RecordingLogger) LogDebug(format string, args ...interface{}) {
	l.DebugMessages = append(l.DebugMessages, format)
}

// Reset clears every recorded message.
func (l *RecordingLogger) Reset() {
	l.InfoMessages = l.InfoMessages[:0]
	l.WarnMessages = l.WarnMessages[:0]
	l.ErrorMessages = l.ErrorMessages[:0]
	l.DebugMessages = l.DebugMessages[:0]
}

// HasInfoMessage reports whether any info message was recorded.
func (l *RecordingLogger) HasInfoMessage() bool {
	return len(l.InfoMessages) > 0
}

// HasWarnMessage reports whether any warning message was recorded.
func (l *RecordingLogger) HasWarnMessage() bool {
	return len(l.WarnMessages) > 0
}

// HasErrorMessage reports whether any error message was recorded.
func (l *RecordingLogger) HasErrorMessage() bool {
	return len(l.ErrorMessages) > 0
}

// HasDebugMessage reports whether any debug message was recorded.
func (l *RecordingLogger) HasDebugMessage() bool {
	return len(l.DebugMessages) > 0
}
