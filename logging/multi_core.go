package logging

import (
	"os"

	"go.uber.org/zap/zapcore"
)

// NewMultiCore builds a core that tees output to the console and a rotating
// log file. The file side always uses JSON; the console side is
// human-readable in development mode and JSON otherwise.
func NewMultiCore(level zapcore.Level, filePath string, isDev bool) zapcore.Core {
	fileWriter := NewFileWriter(filePath)
	return NewMultiCoreWithWriters(level, zapcore.AddSync(os.Stdout), fileWriter, isDev)
}

// NewMultiCoreWithWriters is the writer-injectable variant used by tests.
func NewMultiCoreWithWriters(level zapcore.Level, consoleWriter, fileWriter zapcore.WriteSyncer, isDev bool) zapcore.Core {
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(NewEncoderConfig()),
		fileWriter,
		level,
	)

	var consoleEncoder zapcore.Encoder
	if isDev {
		consoleEncoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(NewEncoderConfig())
	}
	consoleCore := zapcore.NewCore(consoleEncoder, consoleWriter, level)

	return zapcore.NewTee(consoleCore, fileCore)
}
