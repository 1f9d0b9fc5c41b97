// Package observability constructs the process loggers.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the logger for command paths. It defaults to a no-op logger
// and is replaced by InitCLI before any command runs.
var CLILogger = zap.NewNop()

// InitCLI builds the CLI logger at the given level and installs it as
// CLILogger. Command output goes to stderr so stdout stays machine-parseable.
func InitCLI(level string) error {
	logger, err := New(level, "console")
	if err != nil {
		return err
	}
	CLILogger = logger
	return nil
}

// New builds a zap logger.
//
// format is "json" for structured output or "console" for human-readable
// output. level is one of debug, info, warn, error.
func New(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	switch format {
	case "", "json":
		cfg.Encoding = "json"
	case "console":
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	default:
		return nil, fmt.Errorf("invalid log format %q (expected json or console)", format)
	}

	return cfg.Build()
}
