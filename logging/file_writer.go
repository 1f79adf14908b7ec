package logging

import (
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation settings for the daemon log file.
const (
	DefaultMaxSizeMB  = 50
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 30
	DefaultCompress   = true
)

// FileWriterConfig controls log file rotation. Zero values use defaults.
type FileWriterConfig struct {
	MaxSizeMB  int  // Size in MB before rotation
	MaxBackups int  // Old files to retain
	MaxAgeDays int  // Retention in days
	Compress   bool // gzip rotated files
	LocalTime  bool // Timestamp backups in local time instead of UTC
}

// DefaultFileWriterConfig returns the rotation defaults.
func DefaultFileWriterConfig() FileWriterConfig {
	return FileWriterConfig{
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAgeDays: DefaultMaxAgeDays,
		Compress:   DefaultCompress,
	}
}

// NewFileWriter creates a rotating file WriteSyncer with default settings.
func NewFileWriter(path string) zapcore.WriteSyncer {
	return NewFileWriterWithConfig(path, DefaultFileWriterConfig())
}

// NewFileWriterWithConfig creates a rotating file WriteSyncer. Zero-valued
// numeric fields are filled from the defaults; Compress cannot be defaulted
// here because false is indistinguishable from unset.
func NewFileWriterWithConfig(path string, config FileWriterConfig) zapcore.WriteSyncer {
	if config.MaxSizeMB == 0 {
		config.MaxSizeMB = DefaultMaxSizeMB
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = DefaultMaxBackups
	}
	if config.MaxAgeDays == 0 {
		config.MaxAgeDays = DefaultMaxAgeDays
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    config.MaxSizeMB,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAgeDays,
		Compress:   config.Compress,
		LocalTime:  config.LocalTime,
	})
}
