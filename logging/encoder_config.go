package logging

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Standard field names for structured logging.
const (
	FieldTimestamp = "timestamp"
	FieldLevel     = "level"
	FieldSource    = "source"
	FieldMessage   = "message"
	FieldCaller    = "caller"
	FieldStack     = "stacktrace"
)

// NewEncoderConfig returns the encoder configuration used for file (JSON)
// output: ISO8601 timestamps, lowercase levels, short caller paths.
func NewEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       FieldTimestamp,
		LevelKey:      FieldLevel,
		NameKey:       FieldSource,
		CallerKey:     FieldCaller,
		MessageKey:    FieldMessage,
		StacktraceKey: FieldStack,
		LineEnding:    zapcore.DefaultLineEnding,

		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewConsoleEncoderConfig returns the encoder configuration for console
// output: colored levels and compact timestamps.
func NewConsoleEncoderConfig() zapcore.EncoderConfig {
	cfg := NewEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeTime = shortTimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

// shortTimeEncoder encodes time as 15:04:05.000 for console readability.
func shortTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05.000"))
}
