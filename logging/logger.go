// Package logging wraps zap with the project's output conventions:
// console+file tee, file rotation, and automatic credential redaction.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin wrapper over zap.Logger that redacts sensitive fields
// before they reach any output core.
type Logger struct {
	zap         *zap.Logger
	isDev       bool
	logFilePath string
}

// NewLogger creates a Logger writing to both console and the given log file.
// Development mode enables debug level and human-readable console output;
// production mode logs JSON at info level.
func NewLogger(isDevelopment bool, logFilePath string) (*Logger, error) {
	level := zapcore.InfoLevel
	if isDevelopment {
		level = zapcore.DebugLevel
	}

	core := NewMultiCore(level, logFilePath, isDevelopment)

	zapLogger := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	)

	return &Logger{
		zap:         zapLogger,
		isDev:       isDevelopment,
		logFilePath: logFilePath,
	}, nil
}

// NewLoggerWithCore wraps an existing zapcore.Core. Used by tests with an
// observer core to assert on emitted entries.
func NewLoggerWithCore(core zapcore.Core) *Logger {
	return &Logger{zap: zap.New(core, zap.AddCallerSkip(1))}
}

// Sync flushes buffered entries. Call before process exit.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

// Debug logs at DebugLevel with structured fields.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, redactFields(fields)...)
}

// Info logs at InfoLevel with structured fields.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, redactFields(fields)...)
}

// Warn logs at WarnLevel with structured fields.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, redactFields(fields)...)
}

// Error logs at ErrorLevel with structured fields.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, redactFields(fields)...)
}

// Fatal logs at FatalLevel then exits the process.
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, redactFields(fields)...)
}

// With returns a child logger carrying additional fields on every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		zap:         l.zap.With(redactFields(fields)...),
		isDev:       l.isDev,
		logFilePath: l.logFilePath,
	}
}

// Named adds a sub-logger name identifying the emitting component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		zap:         l.zap.Named(name),
		isDev:       l.isDev,
		logFilePath: l.logFilePath,
	}
}

// Zap exposes the underlying zap.Logger for integrations that need it.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// IsDevelopment reports whether the logger runs in development mode.
func (l *Logger) IsDevelopment() bool {
	return l.isDev
}

// LogFilePath returns the configured log file path.
func (l *Logger) LogFilePath() string {
	return l.logFilePath
}

// redactFields applies credential redaction to every field.
func redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}
	result := make([]zap.Field, len(fields))
	for i, field := range fields {
		result[i] = redactField(field)
	}
	return result
}

func redactField(field zap.Field) zap.Field {
	if IsSensitiveField(field.Key) {
		return zap.String(field.Key, RedactedPlaceholder)
	}
	if field.Type == zapcore.StringType {
		if redacted := RedactSensitiveData(field.String); redacted != field.String {
			return zap.String(field.Key, redacted)
		}
	}
	return field
}
