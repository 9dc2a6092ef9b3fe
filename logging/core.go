package logging

import (
	"go.uber.org/zap/zapcore"
)

// newTeeCore builds the combined console+file core. The file side always
// encodes JSON for structured processing; the console side follows format.
func newTeeCore(level zapcore.Level, format string, console, file zapcore.WriteSyncer) zapcore.Core {
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(newEncoderConfig()),
		file,
		level,
	)

	var consoleEncoder zapcore.Encoder
	if format == FormatJSON {
		consoleEncoder = zapcore.NewJSONEncoder(newEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(newConsoleEncoderConfig())
	}
	consoleCore := zapcore.NewCore(consoleEncoder, console, level)

	return zapcore.NewTee(consoleCore, fileCore)
}
